package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/hashicorp/go-multierror"
	"github.com/markphelps/optional"
	"github.com/remeh/sizedwaitgroup"
	"github.com/rs/zerolog/log"

	"github.com/qw-group/srcdemo-go/pkg/config"
	"github.com/qw-group/srcdemo-go/pkg/cvars"
	"github.com/qw-group/srcdemo-go/pkg/demo"
	"github.com/qw-group/srcdemo-go/pkg/demofs"
	"github.com/qw-group/srcdemo-go/pkg/export"
)

var (
	shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")
)

// parseOptions turns the parse section of cfg into decoder options.
func parseOptions(cfg *config.Config, player string) (opts demo.Options, err error) {
	if opts.FieldErrors, err = demo.ParseFieldErrorPolicy(cfg.Parse.FieldErrors); err != nil {
		return opts, err
	}
	if cfg.Parse.FrameBudget > 0 {
		opts.FrameBudget = optional.NewInt(cfg.Parse.FrameBudget)
	}
	if player != "" {
		opts.PlayerFilter = optional.NewString(player)
	}
	opts.SkipPositions = !cfg.Parse.Positions
	l := log.Logger
	opts.Logger = &l
	return opts, nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// readDemo reads name as a path, then from dir, then from the default search path.
func readDemo(dir string, name string) (b []byte, err error) {
	if isFile(name) {
		return demofs.ReadDemo(name)
	}
	if path, pErr := demofs.DemoPath(dir, name); pErr == nil && isFile(path) {
		return demofs.ReadDemo(path)
	}
	if b, err = demofs.Read("", name); err != nil {
		return nil, err
	}
	return demofs.Inflate(b)
}

type parsed struct {
	demo *export.Demo
	size int
	took time.Duration
}

// parseAll parses names with at most parallel demos at once. Results keep
// the order of names, failed demos are reported in the returned error.
func parseAll(ctx context.Context, dir string, names []string, opts demo.Options, parallel int) ([]*parsed, error) {
	var (
		mErr error
		mu   sync.Mutex
	)
	out := make([]*parsed, len(names))

	wg := sizedwaitgroup.New(parallel)
	for i, name := range names {
		wg.Add()
		go func(i int, name string) {
			defer wg.Done()

			start := time.Now()
			res, err := parseOne(ctx, dir, name, opts)
			if err != nil {
				mu.Lock()
				mErr = multierror.Append(mErr, multierror.Prefix(err, name+":"))
				mu.Unlock()
			}
			if res != nil {
				res.took = time.Since(start)
				out[i] = res
			}
		}(i, name)
	}
	wg.Wait()

	results := out[:0]
	for _, r := range out {
		if r != nil {
			results = append(results, r)
		}
	}
	return results, mErr
}

// parseOne returns the partial result along with a parse error. Nil result
// means the demo could not be read.
func parseOne(ctx context.Context, dir string, name string, opts demo.Options) (*parsed, error) {
	b, err := readDemo(dir, name)
	if err != nil {
		return nil, err
	}
	res, err := demo.Parse(ctx, b, opts)
	return &parsed{
		demo: &export.Demo{Name: name, Hash: demofs.HashBytes(b), Result: res},
		size: len(b),
	}, err
}

func printSummary(w io.Writer, results []*parsed, withCvars bool) {
	for _, p := range results {
		r := p.demo.Result
		ticks := 0
		if r.Positions != nil {
			ticks = r.Positions.Len()
		}
		fmt.Fprintf(w, "%s: map %s, server %q, %s, %s, %d ticks\n",
			p.demo.Name,
			r.Header.MapName,
			r.Header.ServerName,
			humanize.Bytes(uint64(p.size)),
			durafmt.Parse(r.Header.Duration()).LimitFirstN(2).Format(shortUnits),
			r.Header.PlaybackTicks,
		)
		fmt.Fprintf(w, "  players %d, events %d, position ticks %d, commands %s, parsed in %s\n",
			len(r.Players),
			len(r.Events),
			ticks,
			humanize.Comma(r.Stats.Commands),
			durafmt.Parse(p.took).LimitFirstN(2).Format(shortUnits),
		)
		if withCvars {
			printCvars(w, r.Cvars)
		}
	}
}

func printCvars(w io.Writer, vars map[string]string) {
	s := cvars.NewStore()
	for k, v := range vars {
		if err := s.Set(k, v); err != nil {
			log.Debug().Err(err).Str("ctx", "printCvars").Str("cvar", k).Msg("")
		}
	}
	fmt.Fprint(w, s.PrintList())
}

// exportAll sends every result to e, errors of all demos are aggregated.
func exportAll(ctx context.Context, e export.Exporter, results []*parsed) (err error) {
	for _, p := range results {
		if eErr := e.Export(ctx, p.demo); eErr != nil {
			err = multierror.Append(err, eErr)
		}
	}
	return err
}
