package main

import (
	"flag"
	"fmt"

	"github.com/qw-group/srcdemo-go/pkg/config"
)

type cliFlagSet struct {
	flag.FlagSet

	configFile  string
	logLevel    string
	parallel    int
	frames      int
	player      string
	noPositions bool
	fieldErrors string
	exportKind  string
	exportPath  string
	serve       bool
	addr        string
	demoDir     string
	cvars       bool
}

// Print usage if requested.
func (f *cliFlagSet) defaultUsage() {
	fmt.Fprintf(f.Output(), "Usage of %s:\n", f.Name())
	fmt.Fprintf(f.Output(), "\n")
	fmt.Fprintf(f.Output(), "%s [flags] demo1.dem demo2.dem.gz...\n", f.Name())
	fmt.Fprintf(f.Output(), "For example:\n")
	fmt.Fprintf(f.Output(), "%s -export sqlite -out demos.db match1.dem match2.dem\n", f.Name())
	fmt.Fprintf(f.Output(), "%s -serve -dir demos\n", f.Name())
	fmt.Fprintf(f.Output(), "\n")

	f.PrintDefaults()
}

// Allocate and parse system cmd line arguments.
func newFlagSet(arguments []string) (*cliFlagSet, error) {
	fs := new(cliFlagSet)
	fs.Init(arguments[0], flag.ContinueOnError)
	fs.Usage = fs.defaultUsage

	fs.StringVar(&fs.configFile, "config", "", "config file (json, yaml or toml)")
	fs.StringVar(&fs.logLevel, "log", "", "log level: trace, debug, info, warn, error")
	fs.IntVar(&fs.parallel, "parallel", 0, "demos parsed at once")
	fs.IntVar(&fs.frames, "frames", 0, "stop each parse after that many demo commands, 0 is unlimited")
	fs.StringVar(&fs.player, "player", "", "record positions of this player only")
	fs.BoolVar(&fs.noPositions, "no-positions", false, "do not record player positions")
	fs.StringVar(&fs.fieldErrors, "field-errors", "", "unknown entity field handling: continue, skip, fail")
	fs.StringVar(&fs.exportKind, "export", "", "export kind: json, sqlite, influx")
	fs.StringVar(&fs.exportPath, "out", "", "export directory (json) or database file (sqlite)")
	fs.BoolVar(&fs.serve, "serve", false, "serve parsed demos over HTTP")
	fs.StringVar(&fs.addr, "addr", "", "HTTP listen address")
	fs.StringVar(&fs.demoDir, "dir", "", "demo directory")
	fs.BoolVar(&fs.cvars, "cvars", false, "print server cvars of each demo")

	if err := fs.Parse(arguments[1:]); err != nil {
		return nil, err
	}
	return fs, nil
}

// apply overrides cfg with the flags given on the command line.
func (f *cliFlagSet) apply(cfg *config.Config) {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "log":
			cfg.Log.Level = f.logLevel
		case "parallel":
			cfg.Parse.Parallel = f.parallel
		case "frames":
			cfg.Parse.FrameBudget = f.frames
		case "no-positions":
			cfg.Parse.Positions = !f.noPositions
		case "field-errors":
			cfg.Parse.FieldErrors = f.fieldErrors
		case "export":
			cfg.Export.Kind = f.exportKind
		case "out":
			cfg.Export.Path = f.exportPath
		case "addr":
			cfg.HTTP.Addr = f.addr
		case "dir":
			cfg.Demo.Dir = f.demoDir
		}
	})
	if cfg.Parse.Parallel < 1 {
		cfg.Parse.Parallel = 1
	}
}
