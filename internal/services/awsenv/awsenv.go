// Package awsenv loads the AWS SDK configuration shared by the S3 and
// Transcribe clients.
package awsenv

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"transcriptor/internal/config"
	"transcriptor/internal/services"
)

// Load resolves region, profile, and credentials. Static credentials from
// the config take precedence over the default provider chain.
func Load(ctx context.Context, cfg config.AWS) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.HasStaticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, services.Wrap(services.ErrConfiguration, "aws", "load config", "", err)
	}
	return awsCfg, nil
}

// CheckCredentials retrieves credentials once so missing or expired keys
// surface before any upload.
func CheckCredentials(ctx context.Context, awsCfg aws.Config) error {
	if awsCfg.Credentials == nil {
		return services.Wrap(services.ErrConfiguration, "aws", "credentials", "no credential provider configured", nil)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return services.Wrap(services.ErrConfiguration, "aws", "credentials", "retrieve credentials", err)
	}
	return nil
}
