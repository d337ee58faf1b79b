package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zugzwang-chess/zugzwang/config"
	"github.com/zugzwang-chess/zugzwang/shell"
)

var GitVersion string

const banner = `
 _______  _ __ _ ______      ____ _ _ __   __ _
|_  / | || / _` + "`" + ` |_  /\ \ /\ / / _` + "`" + ` | '_ \ / _` + "`" + ` |
 / /| |_| | (_| |/ /  \ V  V / (_| | | | | (_| |
/___|\__,_|\__, /___|  \_/\_/ \__,_|_| |_|\__, |
           |___/                          |___/
`

func main() {
	fmt.Print(banner)
	if GitVersion != "" {
		fmt.Println(GitVersion)
	}

	cfg := config.New()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}

	var logger zerolog.Logger
	if cfg.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	log.Logger = logger

	s := shell.New(cfg, os.Stdout)
	if err := s.Loop(); err != nil {
		log.Fatal().Err(err).Msg("shell")
	}
	log.Info().Msg("goodbye")
}
