// Package config holds the settings of a synchronizing peer.
//
// Settings come from defaults,
// then optionally a TOML file,
// then command-line flags.
// Once validated, a Config is treated as immutable.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/bobg/bsync"
)

// Defaults.
const (
	DefaultBlockSize        = 1024
	DefaultPort             = 8901
	DefaultPollInterval     = 5 * time.Second
	DefaultTimeout          = 30 * time.Second
	DefaultRetryInterval    = time.Second
	DefaultMaxRetryInterval = time.Minute
	DefaultHistorySize      = 1 << 16
)

// Config is the configuration of one peer.
type Config struct {
	// Path is the file to synchronize.
	Path string `toml:"path"`

	// Host and Port are the responder's address.
	// The responder listens on Port and ignores Host.
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// BlockSize is proposed by the initiator in its handshake.
	BlockSize int `toml:"block_size"`

	// Direction is the initiator's direction.
	Direction bsync.Direction `toml:"direction"`

	PollInterval     Duration `toml:"poll_interval"`
	Timeout          Duration `toml:"timeout"`
	RetryInterval    Duration `toml:"retry_interval"`
	MaxRetryInterval Duration `toml:"max_retry_interval"`

	// HistorySize is how many acknowledged block signatures the sender remembers.
	HistorySize int `toml:"history_size"`

	// JournalDriver and JournalDSN select an optional event journal.
	JournalDriver string `toml:"journal_driver"`
	JournalDSN    string `toml:"journal_dsn"`

	// HealthAddr, if set, is where the gRPC health service listens.
	HealthAddr string `toml:"health_addr"`

	Verbose bool `toml:"verbose"`
}

// Duration is a time.Duration that reads from strings like "5s" in a TOML file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default produces a Config with default values.
func Default() Config {
	return Config{
		Host:             "localhost",
		Port:             DefaultPort,
		BlockSize:        DefaultBlockSize,
		Direction:        bsync.Push,
		PollInterval:     Duration{DefaultPollInterval},
		Timeout:          Duration{DefaultTimeout},
		RetryInterval:    Duration{DefaultRetryInterval},
		MaxRetryInterval: Duration{DefaultMaxRetryInterval},
		HistorySize:      DefaultHistorySize,
	}
}

// Load reads a TOML file on top of the default values.
func Load(path string) (Config, error) {
	conf := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.Wrapf(err, "reading %s", path)
	}
	if err = toml.Unmarshal(data, &conf); err != nil {
		return conf, errors.Wrapf(err, "parsing %s", path)
	}
	return conf, nil
}

// Addr is the responder's address in host:port form.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports the first problem with the configuration, if any.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("no file path")
	}
	if c.BlockSize <= bsync.MinBlockSize {
		return errors.Errorf("block size %d must be greater than %d", c.BlockSize, bsync.MinBlockSize)
	}
	if _, err := bsync.ParseDirection(string(c.Direction)); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"poll interval", c.PollInterval.Duration},
		{"timeout", c.Timeout.Duration},
		{"retry interval", c.RetryInterval.Duration},
		{"max retry interval", c.MaxRetryInterval.Duration},
	} {
		if d.val <= 0 {
			return errors.Errorf("%s must be positive, got %s", d.name, d.val)
		}
	}
	if c.MaxRetryInterval.Duration < c.RetryInterval.Duration {
		return errors.Errorf("max retry interval %s is less than retry interval %s", c.MaxRetryInterval, c.RetryInterval)
	}
	// A responder that sends pauses for one poll interval between passes,
	// and its counterpart waits for it.
	if c.Timeout.Duration <= c.PollInterval.Duration {
		return errors.Errorf("timeout %s must exceed poll interval %s", c.Timeout, c.PollInterval)
	}
	if c.HistorySize <= 0 {
		return errors.Errorf("history size must be positive, got %d", c.HistorySize)
	}
	if (c.JournalDriver == "") != (c.JournalDSN == "") {
		return errors.New("journal driver and journal DSN must be given together")
	}
	return nil
}
