package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/local/booklet/internal/booklet"
	cfgpkg "github.com/local/booklet/internal/config"
	logpkg "github.com/local/booklet/internal/logger"
	"github.com/local/booklet/internal/metrics"
	"github.com/local/booklet/internal/selection"
	"github.com/local/booklet/internal/source"
	"github.com/local/booklet/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := cfgpkg.Load()

	// Init logging
	if err := logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	defer logpkg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n := source.CleanupTemps(cfg.Paths.TempMaxAge); n > 0 {
		log.Debug().Int("removed", n).Msg("removed stale temp files")
	}

	ref := ""
	if len(os.Args) > 1 {
		ref = os.Args[1]
	} else {
		picked, err := selection.New(cfg.Paths.InputDir).Select()
		if err != nil {
			if !errors.Is(err, selection.ErrCancelled) {
				fmt.Fprintln(os.Stderr, err)
			}
			return 1
		}
		ref = picked
	}

	rec := metrics.New()
	deps := booklet.Dependencies{Metrics: rec, Logger: *logpkg.Get()}
	if cfg.Output.S3Bucket != "" {
		up, err := storage.NewUploader(ctx, cfg.Output.S3Bucket, cfg.Output.S3Prefix)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		deps.Publisher = up
	}

	_, err := booklet.New(cfg.Paths, deps, os.Stdout).Run(ctx, ref)

	if cfg.Metrics.Textfile != "" {
		if werr := rec.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			log.Warn().Err(werr).Str("file", cfg.Metrics.Textfile).Msg("metrics textfile not written")
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
