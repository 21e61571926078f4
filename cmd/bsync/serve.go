package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/bsync"
	"github.com/bobg/bsync/config"
	"github.com/bobg/bsync/health"
	"github.com/bobg/bsync/journal"
	"github.com/bobg/bsync/peer"
)

func (c maincmd) serve(ctx context.Context, fset *flag.FlagSet, args []string) error {
	getConf := peerFlags(fset, c.conf)
	if err := fset.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	conf, err := getConf()
	if err != nil {
		return errors.Wrap(err, "validating config")
	}

	addr := fmt.Sprintf(":%d", conf.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	log.Printf("Listening on %s, synchronizing %s", lis.Addr(), conf.Path)

	return runPeer(ctx, conf, func(ctx context.Context, opts peer.Options) error {
		open := func(blockSize int) (bsync.Store, error) {
			s, err := openStore(conf, blockSize)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		return peer.NewServer(open, opts).Serve(ctx, lis)
	})
}

// runPeer opens the journal and the health service described by conf
// and calls run with options built from them.
func runPeer(ctx context.Context, conf config.Config, run func(context.Context, peer.Options) error) error {
	j, err := journal.Open(ctx, conf.JournalDriver, conf.JournalDSN)
	if err != nil {
		return errors.Wrapf(err, "opening %s journal", conf.JournalDriver)
	}
	defer j.Close()

	opts := options(conf, j)

	g, ctx := errgroup.WithContext(ctx)

	if conf.HealthAddr != "" {
		hs := health.New()
		opts.Status = hs.Set
		g.Go(func() error { return hs.ListenAndServe(ctx, conf.HealthAddr) })
		log.Printf("Health service on %s", conf.HealthAddr)
	}

	g.Go(func() error { return run(ctx, opts) })

	return g.Wait()
}
