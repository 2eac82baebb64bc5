package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jessevdk/go-flags"
)

// Config holds runtime settings for the CLI app.
type Config struct {
	ServerURL  string `long:"server-url" env:"NEWSBOX_SERVER_URL" description:"Base URL of the News API (e.g. https://cloud.example.com/index.php/apps/news/api/v1-2)"`
	Username   string `long:"username" env:"NEWSBOX_USERNAME" description:"Account username"`
	Password   string `long:"password" env:"NEWSBOX_PASSWORD" description:"Account password or app token"`
	DBPath     string `long:"db-path" env:"NEWSBOX_DB_PATH" default:"newsbox.db" description:"Path to the local timeline cache"`
	DebounceMs int    `long:"read-debounce-ms" env:"NEWSBOX_READ_DEBOUNCE_MS" default:"100" description:"Debounce window for scroll-based mark-read batching"`
	Debug      bool   `long:"debug" env:"NEWSBOX_DEBUG" description:"Enable debug logging"`
}

// ErrHelpShown signals that the flags library already printed usage and the
// process should exit cleanly.
var ErrHelpShown = errors.New("help shown")

func Load(args []string) (Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return Config{}, ErrHelpShown
		}
		return Config{}, fmt.Errorf("parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("NEWSBOX_SERVER_URL is required")
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("NEWSBOX_SERVER_URL must be an http(s) URL: %s", c.ServerURL)
	}
	if strings.HasSuffix(c.ServerURL, "/") {
		return fmt.Errorf("NEWSBOX_SERVER_URL must not end with '/': %s", c.ServerURL)
	}
	if c.Username == "" {
		return errors.New("NEWSBOX_USERNAME is required")
	}
	if c.Password == "" {
		return errors.New("NEWSBOX_PASSWORD is required")
	}
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	if c.DebounceMs < 0 {
		return fmt.Errorf("DebounceMs must not be negative: %d", c.DebounceMs)
	}
	return nil
}
