package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/yt-fetch/async"
	"github.com/alanbriolat/yt-fetch/internal/app"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	config := zap.NewDevelopmentConfig()
	config.Level = level
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps := app.DefaultDeps()
	deps.Level = &level
	cmd := app.New(deps)

	result := async.Run(func() error { return cmd.RunContext(ctx, os.Args) })

	select {
	case err = <-result:
	case <-ctx.Done():
		stop()
		logger.Info("Exiting gracefully...")
		err = <-result
	}

	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		if msg := coder.Error(); msg != "" {
			_, _ = fmt.Fprintln(os.Stderr, msg)
		}
	} else if err != nil {
		logger.Error(err.Error())
	}
	return app.ExitCode(err)
}
