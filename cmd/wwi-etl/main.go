package main

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	"github.com/gear6io/wwi-etl/cli"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
)

func main() {
	// Bootstrap logger for failures that happen before the configured one
	// exists
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Str("app", "wwi-etl").
		Logger()

	ctx := cli.WithLogger(context.Background(), logger)
	if err := cli.ExecuteWithContext(ctx); err != nil {
		var exit *cli.ExitError
		if stderrors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		logger.Error().Str("cmd", "main").Str("code", errors.GetCode(err)).Msg(errors.FormatError(err))
		os.Exit(1)
	}
}
