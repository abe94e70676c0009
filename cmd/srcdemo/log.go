package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//
// Log handling.
//

func setupLog(level string, timeFormat string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)

	if timeFormat != "" {
		zerolog.TimeFieldFormat = timeFormat
	}

	// Switch between pretty and normal logger.
	if pretty {
		logSetPrettyOutput()
	} else {
		log.Logger = log.Output(os.Stderr)
	}
	return nil
}

func logSetPrettyOutput() {
	// Create pretty writer.
	prettyOutPut := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: zerolog.TimeFieldFormat,
	}
	// Set it as output.
	log.Logger = log.Output(prettyOutPut)
}
