// Package config loads scout.toml.
package config

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	microtoml "github.com/go-micro/plugins/v4/config/encoder/toml"
	"go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	"go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"

	"github.com/wenzapen/scout/browser"
	"github.com/wenzapen/scout/limiter"
)

type Fetcher struct {
	TimeoutMs int              `json:"timeout" toml:"timeout"`
	Proxy     []string         `json:"proxy" toml:"proxy"`
	UserAgent string           `json:"userAgent" toml:"userAgent"`
	RetryMax  int              `json:"retryMax" toml:"retryMax"`
	Limits    []limiter.Config `json:"limits" toml:"limits"`
}

type Runner struct {
	SampleSize int `json:"sampleSize" toml:"sampleSize"`
}

type Prober struct {
	Workers int `json:"workers" toml:"workers"`
}

type Storage struct {
	// SQLURL selects the SQLite sink when set.
	SQLURL     string `json:"sqlURL" toml:"sqlURL"`
	// Path of the JSON-lines output file; with neither set, runs print
	// their result to stdout.
	Path       string `json:"path" toml:"path"`
	BatchCount int    `json:"batchCount" toml:"batchCount"`
}

type Config struct {
	LogLevel string         `json:"logLevel" toml:"logLevel"`
	LogFile  string         `json:"logFile" toml:"logFile"`
	Fetcher  Fetcher        `json:"fetcher" toml:"fetcher"`
	Browser  browser.Config `json:"browser" toml:"browser"`
	Runner   Runner         `json:"runner" toml:"runner"`
	Prober   Prober         `json:"prober" toml:"prober"`
	Storage  Storage        `json:"storage" toml:"storage"`
}

func Default() Config {
	return Config{
		LogLevel: "INFO",
		Fetcher: Fetcher{
			TimeoutMs: 5000,
			RetryMax:  2,
		},
		Browser: browser.DefaultConfig(),
		Runner:  Runner{SampleSize: 3},
		Prober:  Prober{Workers: 4},
		Storage: Storage{BatchCount: 1},
	}
}

// Load reads the TOML file at path. Keys missing from the file keep their
// Default values.
func Load(path string) (Config, error) {
	c := Default()

	enc := microtoml.NewEncoder()
	cfg, err := config.NewConfig(config.WithReader(json.NewReader(reader.WithEncoder(enc))))
	if err != nil {
		return c, fmt.Errorf("init config: %w", err)
	}
	defer cfg.Close()
	if err := cfg.Load(file.NewSource(file.WithPath(path), source.WithEncoder(enc))); err != nil {
		return c, fmt.Errorf("load config %s: %w", path, err)
	}

	c.LogLevel = cfg.Get("logLevel").String(c.LogLevel)
	c.LogFile = cfg.Get("logFile").String(c.LogFile)

	c.Fetcher.TimeoutMs = cfg.Get("fetcher", "timeout").Int(c.Fetcher.TimeoutMs)
	c.Fetcher.Proxy = cfg.Get("fetcher", "proxy").StringSlice(c.Fetcher.Proxy)
	c.Fetcher.UserAgent = cfg.Get("fetcher", "userAgent").String(c.Fetcher.UserAgent)
	c.Fetcher.RetryMax = cfg.Get("fetcher", "retryMax").Int(c.Fetcher.RetryMax)
	if err := cfg.Get("fetcher", "limits").Scan(&c.Fetcher.Limits); err != nil {
		return c, fmt.Errorf("fetcher.limits: %w", err)
	}

	for key, dst := range map[string]any{
		"browser": &c.Browser,
		"runner":  &c.Runner,
		"prober":  &c.Prober,
		"storage": &c.Storage,
	} {
		if err := cfg.Get(key).Scan(dst); err != nil {
			return c, fmt.Errorf("%s: %w", key, err)
		}
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Fetcher.TimeoutMs < 0:
		return fmt.Errorf("fetcher.timeout must not be negative")
	case c.Fetcher.RetryMax < 0:
		return fmt.Errorf("fetcher.retryMax must not be negative")
	case c.Runner.SampleSize < 0:
		return fmt.Errorf("runner.sampleSize must not be negative")
	case c.Prober.Workers < 1:
		return fmt.Errorf("prober.workers must be at least 1")
	}
	for i, l := range c.Fetcher.Limits {
		if l.EventCount <= 0 || l.EventDuration <= 0 {
			return fmt.Errorf("fetcher.limits[%d]: eventCount and eventDuration must be positive", i)
		}
	}
	return nil
}

// Encode writes c as TOML.
func Encode(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
