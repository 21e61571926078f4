package main

import (
	"flag"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/config"
	"github.com/bobg/bsync/journal"
	"github.com/bobg/bsync/peer"
	"github.com/bobg/bsync/store/file"
	"github.com/bobg/bsync/store/logging"
)

// peerFlags defines the flags shared by serve and sync,
// defaulting to the values in conf.
// Call the result after parsing fset to get the updated, validated config.
func peerFlags(fset *flag.FlagSet, conf config.Config) func() (config.Config, error) {
	var (
		path          = fset.String("path", conf.Path, "file to synchronize")
		host          = fset.String("host", conf.Host, "responder host")
		port          = fset.Int("port", conf.Port, "responder port")
		blockSize     = fset.Int("blocksize", conf.BlockSize, "block size in bytes")
		dir           = fset.String("dir", string(conf.Direction), "direction, push or pull")
		poll          = fset.Duration("poll", conf.PollInterval.Duration, "interval between checks for local changes")
		timeout       = fset.Duration("timeout", conf.Timeout.Duration, "timeout for each network operation")
		retry         = fset.Duration("retry", conf.RetryInterval.Duration, "initial retry interval")
		maxRetry      = fset.Duration("maxretry", conf.MaxRetryInterval.Duration, "maximum retry interval")
		history       = fset.Int("history", conf.HistorySize, "number of acknowledged block signatures to remember")
		journalDriver = fset.String("journal", conf.JournalDriver, "journal driver, one of sqlite3 or postgres")
		journalDSN    = fset.String("dsn", conf.JournalDSN, "journal data source name")
		healthAddr    = fset.String("health", conf.HealthAddr, "address for the gRPC health service")
		verbose       = fset.Bool("v", conf.Verbose, "log every block operation")
	)

	return func() (config.Config, error) {
		conf.Path = *path
		conf.Host = *host
		conf.Port = *port
		conf.BlockSize = *blockSize
		conf.Direction = bsync.Direction(*dir)
		conf.PollInterval.Duration = *poll
		conf.Timeout.Duration = *timeout
		conf.RetryInterval.Duration = *retry
		conf.MaxRetryInterval.Duration = *maxRetry
		conf.HistorySize = *history
		conf.JournalDriver = *journalDriver
		conf.JournalDSN = *journalDSN
		conf.HealthAddr = *healthAddr
		conf.Verbose = *verbose
		return conf, conf.Validate()
	}
}

func options(conf config.Config, j journal.Journal) peer.Options {
	return peer.Options{
		Timeout:          conf.Timeout.Duration,
		RetryInterval:    conf.RetryInterval.Duration,
		MaxRetryInterval: conf.MaxRetryInterval.Duration,
		PollInterval:     conf.PollInterval.Duration,
		PassInterval:     conf.PollInterval.Duration,
		HistorySize:      conf.HistorySize,
		Logger:           log.Default(),
		Journal:          j,
	}
}

type closingStore interface {
	bsync.Store
	Close() error
}

func openStore(conf config.Config, blockSize int) (closingStore, error) {
	fs, err := file.Open(conf.Path, blockSize)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", conf.Path)
	}
	if !conf.Verbose {
		return fs, nil
	}
	return logging.New(fs, log.New(os.Stderr, "store: ", log.LstdFlags)), nil
}
