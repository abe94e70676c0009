package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/qw-group/srcdemo-go/pkg/config"
	"github.com/qw-group/srcdemo-go/pkg/demo"
	"github.com/qw-group/srcdemo-go/pkg/demofs"
	"github.com/qw-group/srcdemo-go/pkg/export"
	"github.com/qw-group/srcdemo-go/pkg/viewer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[0:]); err != nil {
		// Avoid logging flag errors since flag already print errors on stderr.
		if !errors.Is(err, flag.ErrHelp) && !strings.HasPrefix(err.Error(), "flag provided but not defined:") {
			log.Err(err).Msg("")
		}
		os.Exit(2)
	}
}

func run(ctx context.Context, arguments []string) (err error) {
	fs, err := newFlagSet(arguments)
	if err != nil {
		return err
	}
	cfg, err := config.Load(fs.configFile)
	if err != nil {
		return err
	}
	fs.apply(cfg)
	if err := setupLog(cfg.Log.Level, cfg.Log.TimeFormat, cfg.Log.Pretty); err != nil {
		return err
	}

	opts, err := parseOptions(cfg, fs.player)
	if err != nil {
		return err
	}

	names := fs.Args()
	if len(names) == 0 && !fs.serve {
		fs.Usage()
		return flag.ErrHelp
	}

	results, parseErr := parseAll(ctx, cfg.Demo.Dir, names, opts, cfg.Parse.Parallel)
	if parseErr != nil {
		// Don't be fatal, the partial results are still useful.
		log.Err(parseErr).Msg("")
	}
	printSummary(os.Stdout, results, fs.cvars)

	exporter, err := export.New(cfg)
	if err != nil {
		return err
	}
	if exporter != nil {
		defer exporter.Close()
		if err := exportAll(ctx, exporter, results); err != nil {
			return multierror.Prefix(err, "export:")
		}
	}

	if !fs.serve {
		return parseErr
	}
	return serve(ctx, cfg, opts, results)
}

func serve(ctx context.Context, cfg *config.Config, opts demo.Options, results []*parsed) error {
	catalog := demofs.NewCatalog(cfg.Demo.Dir)
	sv := viewer.New(catalog, opts)
	for _, p := range results {
		sv.Add(p.demo.Name, p.demo.Hash, p.demo.Result, nil)
	}

	refresh := cfg.Demo.Refresh
	if refresh <= 0 {
		refresh = 30 * time.Second
	}
	go func() {
		if err := catalog.Run(ctx, refresh); err != nil && !errors.Is(err, context.Canceled) {
			log.Err(err).Msg("")
		}
	}()

	l, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	log.Info().Str("ctx", "main").Str("addr", l.Addr().String()).Str("dir", cfg.Demo.Dir).Msg("serving")
	return sv.Serve(ctx, l)
}
