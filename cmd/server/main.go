package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

type flags struct {
	Env      string
	Port     int
	LogLevel string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := setupLogger("info"); err != nil {
		panic(err)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file")
	}

	f := &flags{}
	app := &cli.Command{
		Name:    "watchparty",
		Usage:   "Synchronized video playback server",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "env",
				Usage:       "config environment, selects config/config.<env>.yaml",
				Sources:     cli.EnvVars("CONFIG_ENV"),
				Value:       "dev",
				Destination: &f.Env,
			},
			&cli.IntFlag{
				Name:        "port",
				Usage:       "listen port, overrides config when set",
				Destination: &f.Port,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("WATCHPARTY_LOG_LEVEL"),
				Value:       "info",
				Destination: &f.LogLevel,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := setupLogger(f.LogLevel); err != nil {
				return err
			}
			return run(ctx, f)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("watchparty exited")
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(parsedLevel)
	return nil
}
