// Command bsync keeps a file synchronized with its counterpart on another host.
//
// One host runs "bsync serve" and the other runs "bsync sync",
// which connects to it and pushes or pulls the file, block by block,
// until interrupted.
//
// Settings come from an optional TOML file (-config),
// overridden by subcommand flags.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobg/subcmd"

	"github.com/bobg/bsync/config"
	_ "github.com/bobg/bsync/journal/pg"
	_ "github.com/bobg/bsync/journal/sqlite3"
)

type maincmd struct {
	conf config.Config
}

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	conf := config.Default()
	if *configPath != "" {
		var err error
		conf, err = config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("got signal %s", sig)
		cancel()
	}()

	err := subcmd.Run(ctx, maincmd{conf: conf}, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"serve": c.serve,
		"sync":  c.sync,
		"stats": c.stats,
		"sigs":  c.sigs,
	}
}
