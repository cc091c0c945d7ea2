// Package imgfetch answers a picture command by pulling an image URL from
// a configurable HTTP API and replying with an image segment.
package imgfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/grvsrs/onebus/pkg/config"
	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/matcher"
	"github.com/grvsrs/onebus/pkg/onebot"
)

const (
	defaultCommand = "pic"
	defaultURLPath = "url"
	fetchTimeout   = 15 * time.Second
	maxBody        = 1 << 20
)

// fetcher queries one API endpoint and extracts the image URL from its
// JSON response.
type fetcher struct {
	api     string
	urlPath string
	client  *http.Client
}

func (f *fetcher) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.api, nil)
	if err != nil {
		return "", fmt.Errorf("imgfetch: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgfetch: query api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imgfetch: api returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("imgfetch: read response: %w", err)
	}
	url := gjson.GetBytes(body, f.urlPath).String()
	if url == "" {
		return "", fmt.Errorf("imgfetch: no url at %q in response", f.urlPath)
	}
	return url, nil
}

// Matcher builds the image-fetch matcher from its config block. The
// command, API endpoint and response path are all configurable; the
// matcher replies with the fetched URL as an image segment.
func Matcher(cfg config.ImageConfig) *matcher.Matcher[onebot.MessageEvent] {
	command := cfg.Command
	if command == "" {
		command = defaultCommand
	}
	urlPath := cfg.URLPath
	if urlPath == "" {
		urlPath = defaultURLPath
	}
	f := &fetcher{
		api:     cfg.API,
		urlPath: urlPath,
		client:  &http.Client{Timeout: fetchTimeout},
	}

	return matcher.OnHandle("imgfetch", func(ctx context.Context, e *onebot.MessageEvent, m *matcher.Matcher[onebot.MessageEvent]) {
		url, err := f.fetch(ctx)
		if err != nil {
			logger.WarnCF("imgfetch", "fetch failed", map[string]interface{}{"error": err.Error()})
			m.SendText(ctx, "no picture this time")
			return
		}
		m.Send(ctx, []onebot.Segment{onebot.Image(url)})
	}).
		AddPreMatcher(matcher.CommandStart()).
		AddPreMatcher(matcher.OnCommand(command))
}
