package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/tebeka/atexit"

	"spyder/cmd/spyder/commands"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(stop)

	if err := commands.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("spyder failed")
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
