// Command prefetch walks the archived media references in a message store
// and downloads them into a local cache directory. Gateways expire media
// URLs after a while; running this shortly after archiving keeps the files.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/plugins/msgstore"
)

const fetchTimeout = 30 * time.Second

func main() {
	dbPath := flag.String("db", msgstore.DefaultPath, "message store database")
	cacheDir := flag.String("cache", "media-cache", "directory to download into")
	mediaType := flag.String("type", "image", "media type to fetch (image or record)")
	limit := flag.Int("limit", 200, "newest N references to consider")
	flag.Parse()

	logger.Init(false, false)

	store, err := msgstore.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer store.Close()

	urls, err := store.MediaURLs(*mediaType, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*cacheDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fetched, skipped := 0, 0
	for _, m := range urls {
		dest := filepath.Join(*cacheDir, cacheName(m))
		if _, err := os.Stat(dest); err == nil {
			skipped++
			continue
		}
		if err := fetch(m.URL, dest); err != nil {
			logger.WarnCF("prefetch", "download failed", map[string]interface{}{
				"url": m.URL, "error": err.Error(),
			})
			continue
		}
		fetched++
	}
	logger.InfoCF("prefetch", "done", map[string]interface{}{
		"fetched": fetched, "skipped": skipped, "total": len(urls),
	})
}

// cacheName keys the cache by message id so re-runs are idempotent even
// when the gateway rotates URLs.
func cacheName(m msgstore.MediaURL) string {
	ext := filepath.Ext(m.URL)
	if ext == "" || len(ext) > 5 {
		ext = ""
	}
	return m.Type + "-" + m.MessageID + ext
}

func fetch(url, dest string) error {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
