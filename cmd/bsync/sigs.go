package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/bsync/store/file"
)

// sigs prints the block signatures of a file,
// for comparing two hosts' copies by eye.
func (c maincmd) sigs(ctx context.Context, fset *flag.FlagSet, args []string) error {
	var (
		path      = fset.String("path", c.conf.Path, "file to examine")
		blockSize = fset.Int("blocksize", c.conf.BlockSize, "block size in bytes")
	)
	if err := fset.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *path == "" {
		return errors.New("no file path")
	}

	if _, err := os.Stat(*path); err != nil {
		return errors.Wrapf(err, "statting %s", *path)
	}

	s, err := file.Open(*path, *blockSize)
	if err != nil {
		return errors.Wrapf(err, "opening %s", *path)
	}
	defer s.Close()

	fmt.Printf("%s: %d bytes in %d blocks of %d\n", *path, s.Size(), s.Len(), s.BlockSize())
	for i := 0; i < s.Len(); i++ {
		blk, ok := s.BlockAt(i)
		if !ok {
			return fmt.Errorf("block %d vanished", i)
		}
		fmt.Printf("%6d %6d %s\n", blk.Index, blk.Length, blk.Sig)
	}
	return nil
}
