package main

import (
	"context"
	"flag"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/bsync/peer"
)

func (c maincmd) sync(ctx context.Context, fset *flag.FlagSet, args []string) error {
	getConf := peerFlags(fset, c.conf)
	if err := fset.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	conf, err := getConf()
	if err != nil {
		return errors.Wrap(err, "validating config")
	}

	s, err := openStore(conf, conf.BlockSize)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Printf("Synchronizing %s with %s (%s)", conf.Path, conf.Addr(), conf.Direction)

	return runPeer(ctx, conf, func(ctx context.Context, opts peer.Options) error {
		return peer.NewClient(s, conf.Addr(), conf.Direction, opts).Run(ctx)
	})
}
