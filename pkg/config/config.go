// Package config loads the framework settings: global defaults, per-bot
// overrides, the reverse-WS listener block and plugin settings. Loaded once
// at boot from a YAML file, with ONEBUS_* environment overrides applied on
// top.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/grvsrs/onebus/pkg/logger"
)

// DefaultPath is the config file written when none exists.
const DefaultPath = "onebus.yaml"

// Config is the root settings document.
type Config struct {
	Global   GlobalConfig         `yaml:"global"`
	Bots     map[string]BotConfig `yaml:"bots,omitempty"`
	WSServer *ServerConfig        `yaml:"ws_server,omitempty"`
	Plugins  PluginsConfig        `yaml:"plugins,omitempty"`
}

// GlobalConfig holds the defaults every bot inherits.
type GlobalConfig struct {
	Debug         bool     `yaml:"debug"`
	Trace         bool     `yaml:"trace,omitempty"`
	Superusers    []string `yaml:"superusers"`
	Nicknames     []string `yaml:"nicknames"`
	CommandStarts []string `yaml:"command_starts"`
}

// BotConfig is the effective runtime configuration of one bot identity.
// Empty fields fall back to the global defaults when the effective config
// is computed.
type BotConfig struct {
	BotID         string   `yaml:"-"`
	Superusers    []string `yaml:"superusers,omitempty"`
	Nicknames     []string `yaml:"nicknames,omitempty"`
	CommandStarts []string `yaml:"command_starts,omitempty"`
	AccessToken   string   `yaml:"access_token,omitempty"`
	WSServer      string   `yaml:"ws_server,omitempty"`
}

// IsSuperuser reports whether the given user id is a configured superuser.
func (c *BotConfig) IsSuperuser(userID string) bool {
	for _, su := range c.Superusers {
		if su == userID {
			return true
		}
	}
	return false
}

// ServerConfig is the reverse-WS listener block.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	AccessToken string `yaml:"access_token,omitempty"`
}

// Addr renders the listen address.
func (s *ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// PluginsConfig carries the optional builtin plugin settings.
type PluginsConfig struct {
	MsgStore MsgStoreConfig  `yaml:"msgstore,omitempty"`
	Reply    ReplyConfig     `yaml:"reply,omitempty"`
	Console  ConsoleConfig   `yaml:"console,omitempty"`
	Image    ImageConfig     `yaml:"image,omitempty"`
	Jobs     map[string]string `yaml:"jobs,omitempty"` // name -> cron expression
}

// MsgStoreConfig configures the sqlite message store plugin.
type MsgStoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// ReplyConfig configures the chat-completion reply plugin.
type ReplyConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// ConsoleConfig configures the interactive console plugin.
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ImageConfig configures the image-fetch matcher: a command that pulls a
// picture URL from an HTTP API and posts it back.
type ImageConfig struct {
	Enabled bool   `yaml:"enabled"`
	API     string `yaml:"api,omitempty"`
	// URLPath is the JSON path of the image URL in the API response.
	URLPath string `yaml:"url_path,omitempty"`
	Command string `yaml:"command,omitempty"`
}

// envOverrides are applied on top of the loaded file.
type envOverrides struct {
	Debug       *bool  `env:"ONEBUS_DEBUG"`
	AccessToken string `env:"ONEBUS_ACCESS_TOKEN"`
	WSHost      string `env:"ONEBUS_WS_HOST"`
	WSPort      *int   `env:"ONEBUS_WS_PORT"`
	ReplyAPIKey string `env:"ONEBUS_REPLY_API_KEY"`
}

// Default returns the config written on first run: debug on, a reverse-WS
// listener on localhost and "/" as the command prefix.
func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			Debug:         true,
			CommandStarts: []string{"/"},
		},
		WSServer: &ServerConfig{Host: "127.0.0.1", Port: 8088},
	}
}

// Load reads the config file at path, creating it with defaults when it
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		cfg = Default()
		out, merr := yaml.Marshal(cfg)
		if merr != nil {
			return nil, fmt.Errorf("config: marshal default: %w", merr)
		}
		if werr := os.WriteFile(path, out, 0o644); werr != nil {
			return nil, fmt.Errorf("config: write default: %w", werr)
		}
		logger.InfoCF("config", "no config file found, wrote defaults", map[string]interface{}{"path": path})
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		cfg = &Config{}
		if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, uerr)
		}
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	cfg.apply(ov)

	for id, bc := range cfg.Bots {
		bc.BotID = id
		cfg.Bots[id] = bc
	}
	return cfg, nil
}

func (c *Config) apply(ov envOverrides) {
	if ov.Debug != nil {
		c.Global.Debug = *ov.Debug
	}
	if ov.AccessToken != "" && c.WSServer != nil {
		c.WSServer.AccessToken = ov.AccessToken
	}
	if c.WSServer != nil {
		if ov.WSHost != "" {
			c.WSServer.Host = ov.WSHost
		}
		if ov.WSPort != nil {
			c.WSServer.Port = *ov.WSPort
		}
	}
	if ov.ReplyAPIKey != "" {
		c.Plugins.Reply.APIKey = ov.ReplyAPIKey
	}
}

// BotConfig computes the effective config for a bot identity by overlaying
// its per-bot block onto the global defaults. Unknown identities get the
// plain global defaults.
func (c *Config) BotConfig(botID string) BotConfig {
	eff := BotConfig{
		BotID:         botID,
		Superusers:    c.Global.Superusers,
		Nicknames:     c.Global.Nicknames,
		CommandStarts: c.Global.CommandStarts,
	}
	if c.WSServer != nil {
		eff.AccessToken = c.WSServer.AccessToken
	}
	bc, ok := c.Bots[botID]
	if !ok {
		return eff
	}
	if len(bc.Superusers) > 0 {
		eff.Superusers = bc.Superusers
	}
	if len(bc.Nicknames) > 0 {
		eff.Nicknames = bc.Nicknames
	}
	if len(bc.CommandStarts) > 0 {
		eff.CommandStarts = bc.CommandStarts
	}
	if bc.AccessToken != "" {
		eff.AccessToken = bc.AccessToken
	}
	eff.WSServer = bc.WSServer
	return eff
}

// AccessToken builds the token set used for handshakes in both directions.
func (c *Config) AccessToken() AccessToken {
	at := AccessToken{Bots: map[string]string{}}
	if c.WSServer != nil {
		at.Global = c.WSServer.AccessToken
	}
	for id, bc := range c.Bots {
		if bc.AccessToken != "" {
			at.Bots[id] = bc.AccessToken
		}
	}
	return at
}

// AccessToken is the per-bot bearer token set with global fallback.
type AccessToken struct {
	Global string
	Bots   map[string]string
}

func (a AccessToken) token(botID string) string {
	if t, ok := a.Bots[botID]; ok {
		return t
	}
	return a.Global
}

// Header renders the Authorization header value sent on outbound dials.
func (a AccessToken) Header(botID string) string {
	return "Bearer " + a.token(botID)
}

// Check validates a peer-presented Authorization header against the
// configured token for botID. An empty configured token admits everyone.
func (a AccessToken) Check(botID, header string) bool {
	want := a.token(botID)
	if want == "" {
		return true
	}
	for _, scheme := range []string{"Bearer", "Token"} {
		if strings.HasPrefix(header, scheme) {
			got := strings.TrimSpace(strings.TrimPrefix(header, scheme))
			if got == want {
				return true
			}
		}
	}
	logger.WarnCF("config", "access token mismatch", map[string]interface{}{"bot_id": botID})
	return false
}
