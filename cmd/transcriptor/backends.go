package main

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"transcriptor/internal/config"
	"transcriptor/internal/job"
	"transcriptor/internal/preflight"
	"transcriptor/internal/services/awsenv"
	"transcriptor/internal/services/awstranscribe"
	"transcriptor/internal/services/s3store"
)

// backends are the remote collaborators a transcription batch needs.
type backends struct {
	Storage    job.Storage
	Recognizer job.Recognizer
	Remote     preflight.Remote
}

type backendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backends, error)

func awsBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backends, error) {
	awsCfg, err := awsenv.Load(ctx, cfg.AWS)
	if err != nil {
		return backends{}, err
	}
	store := s3store.NewFromConfig(awsCfg, cfg.AWS, logger)
	return backends{
		Storage:    store,
		Recognizer: awstranscribe.NewFromConfig(awsCfg, logger),
		Remote:     awsRemote{cfg: awsCfg, store: store},
	}, nil
}

type awsRemote struct {
	cfg   aws.Config
	store *s3store.Store
}

func (r awsRemote) CheckCredentials(ctx context.Context) error {
	return awsenv.CheckCredentials(ctx, r.cfg)
}

func (r awsRemote) CheckBucket(ctx context.Context) error {
	return r.store.CheckBucket(ctx)
}
