package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/linkedin-ingestor/internal/extractor"
	"github.com/sells-group/linkedin-ingestor/internal/ingest"
	"github.com/sells-group/linkedin-ingestor/internal/normalizer"
	"github.com/sells-group/linkedin-ingestor/internal/notifier"
	"github.com/sells-group/linkedin-ingestor/internal/packager"
	"github.com/sells-group/linkedin-ingestor/internal/reconciler"
	"github.com/sells-group/linkedin-ingestor/internal/storage"
	"github.com/sells-group/linkedin-ingestor/internal/store"
)

// pipelineEnv bundles everything a command needs to run ingestions.
type pipelineEnv struct {
	Repo    store.Repository
	Storage *storage.Manager
	Job     *ingest.Job
}

func (e *pipelineEnv) Close() {
	if err := e.Repo.Close(); err != nil {
		zap.L().Error("closing store", zap.Error(err))
	}
}

func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	repo, err := store.New(cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	mgr := storage.NewManager(cfg.Ingest.IncomingDir, cfg.Ingest.OutputDir, cfg.Ingest.ArchiveDir)
	if err := mgr.EnsureDirs(); err != nil {
		repo.Close() //nolint:errcheck
		return nil, err
	}

	mapping := extractor.DefaultMapping()
	if cfg.Ingest.MappingFile != "" {
		mapping, err = extractor.LoadMapping(cfg.Ingest.MappingFile)
		if err != nil {
			repo.Close() //nolint:errcheck
			return nil, err
		}
	}

	notify := notifier.NewMulti(
		notifier.NewEmail(cfg.SMTP),
		notifier.NewWebhook(cfg.Webhook.URL, cfg.Webhook.RatePerMinute),
	)

	job := ingest.NewJob(
		repo,
		extractor.New(mapping),
		normalizer.New(),
		reconciler.New(),
		mgr,
		packager.New(),
		notify,
	)

	zap.L().Info("pipeline initialized",
		zap.String("driver", cfg.Store.Driver),
		zap.String("incoming", cfg.Ingest.IncomingDir),
	)
	return &pipelineEnv{Repo: repo, Storage: mgr, Job: job}, nil
}
