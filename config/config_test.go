package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/bsync"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bsync.toml")
	const text = `
path = "/tmp/data"
host = "example.com"
port = 9000
block_size = 4096
direction = "pull"
poll_interval = "2s"
journal_driver = "sqlite3"
journal_dsn = "/tmp/journal.db"
`
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := Default()
	want.Path = "/tmp/data"
	want.Host = "example.com"
	want.Port = 9000
	want.BlockSize = 4096
	want.Direction = bsync.Pull
	want.PollInterval = Duration{2 * time.Second}
	want.JournalDriver = "sqlite3"
	want.JournalDSN = "/tmp/journal.db"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if err = got.Validate(); err != nil {
		t.Error(err)
	}
	if got.Addr() != "example.com:9000" {
		t.Errorf("got addr %s", got.Addr())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "nonexistent.toml")); err == nil {
		t.Error("got no error loading a nonexistent file")
	}

	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte(`poll_interval = "soon"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("got no error loading a bad duration")
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Path = "data"
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config with a path is invalid: %s", err)
	}

	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"no path", func(c *Config) { c.Path = "" }},
		{"block size at minimum", func(c *Config) { c.BlockSize = bsync.MinBlockSize }},
		{"bad direction", func(c *Config) { c.Direction = "sideways" }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"zero poll interval", func(c *Config) { c.PollInterval = Duration{} }},
		{"negative timeout", func(c *Config) { c.Timeout = Duration{-time.Second} }},
		{"inverted retry", func(c *Config) { c.MaxRetryInterval = Duration{time.Millisecond} }},
		{"timeout below poll interval", func(c *Config) { c.Timeout = Duration{time.Second} }},
		{"zero history", func(c *Config) { c.HistorySize = 0 }},
		{"journal driver without dsn", func(c *Config) { c.JournalDriver = "sqlite3" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			conf := valid
			c.modify(&conf)
			if err := conf.Validate(); err == nil {
				t.Error("got no error")
			}
		})
	}

	ok := valid
	ok.BlockSize = bsync.MinBlockSize + 1
	if err := ok.Validate(); err != nil {
		t.Errorf("block size %d: %s", ok.BlockSize, err)
	}
}
