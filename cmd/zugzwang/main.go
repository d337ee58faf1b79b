package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zugzwang-chess/zugzwang/config"
	"github.com/zugzwang-chess/zugzwang/uci"
)

var GitVersion string

func main() {
	cfg := config.New()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	var logger zerolog.Logger
	if cfg.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		logger = zerolog.New(output).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	}
	log.Logger = logger

	if path := cfg.GetString("cpu-profile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	log.Debug().Str("version", GitVersion).Interface("config", cfg.AllSettings()).Msg("starting")

	p := uci.New(cfg, os.Stdout)
	p.Run(os.Stdin)
}
