package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"heavenwatch-backend/lib/restyutil"
	scraper "heavenwatch-backend/lib/scrapers/heaven"
	"heavenwatch-backend/lib/telemetry"

	"github.com/lmittmann/tint"
)

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func InitTelemetry(ctx context.Context, verbose bool) {
	initSlog(verbose)

	tel, err := telemetry.SetupFromEnv(ctx, "heaven-server")
	if err != nil {
		slog.Warn("telemetry disabled", "reason", err)
	} else {
		go func() {
			<-ctx.Done()
			err := tel.Shutdown(context.Background())
			if err != nil {
				slog.Error("telemetry shutdown", "err", err)
			}
		}()
	}
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}
	scraper.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput(".dev/resty/heaven"),
	)
}
