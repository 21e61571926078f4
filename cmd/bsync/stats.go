package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/bsync/journal"
)

func (c maincmd) stats(ctx context.Context, fset *flag.FlagSet, args []string) error {
	var (
		driver = fset.String("journal", c.conf.JournalDriver, "journal driver, one of "+fmt.Sprint(journal.Drivers()))
		dsn    = fset.String("dsn", c.conf.JournalDSN, "journal data source name")
		since  = fset.Duration("since", 0, "list individual events from this long ago (default: summary only)")
	)
	if err := fset.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *driver == "" {
		return errors.New("no journal driver")
	}

	j, err := journal.Open(ctx, *driver, *dsn)
	if err != nil {
		return errors.Wrapf(err, "opening %s journal", *driver)
	}
	defer j.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)

	if *since > 0 {
		l, ok := j.(journal.Lister)
		if !ok {
			return fmt.Errorf("%s journal cannot list events", *driver)
		}
		fmt.Fprintln(w, "TIME\tROLE\tKIND\tBLOCK\tBYTES")
		err = l.Events(ctx, time.Now().Add(-*since), func(ev journal.Event) error {
			_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", ev.At.Format(time.RFC3339), ev.Role, ev.Kind, ev.Index, ev.Bytes)
			return err
		})
		if err != nil {
			return errors.Wrap(err, "listing events")
		}
		return w.Flush()
	}

	s, ok := j.(journal.Summarizer)
	if !ok {
		return fmt.Errorf("%s journal cannot summarize", *driver)
	}
	counts, err := s.Summary(ctx)
	if err != nil {
		return errors.Wrap(err, "summarizing")
	}
	fmt.Fprintln(w, "ROLE\tKIND\tCOUNT\tBYTES")
	for _, cnt := range counts {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", cnt.Role, cnt.Kind, cnt.N, cnt.Bytes)
	}
	return w.Flush()
}
