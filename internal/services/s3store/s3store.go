// Package s3store uploads audio to S3 for the recognizer and removes it when
// the job ends.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"transcriptor/internal/config"
	"transcriptor/internal/job"
	"transcriptor/internal/logging"
	"transcriptor/internal/services"
)

// API is the subset of the S3 client used here.
type API interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

// Store implements job.Storage.
type Store struct {
	client API
	bucket string
	prefix string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time used in object keys.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the unique part of object keys.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New wraps an existing client.
func New(client API, bucket, prefix string, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logging.NewComponentLogger(logger, "s3"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig builds an S3 client honoring custom endpoints.
func NewFromConfig(awsCfg aws.Config, cfg config.AWS, logger *slog.Logger, opts ...Option) *Store {
	var s3Opts []func(*awss3.Options)
	if cfg.S3Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	} else if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}
	client := awss3.NewFromConfig(awsCfg, s3Opts...)
	return New(client, cfg.S3Bucket, cfg.S3KeyPrefix, logger, opts...)
}

// Store uploads localPath and returns its handle.
func (s *Store) Store(ctx context.Context, localPath string) (job.Handle, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return job.Handle{}, services.Wrap(services.ErrPermanent, "s3", "store", "open audio", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return job.Handle{}, services.Wrap(services.ErrPermanent, "s3", "store", "stat audio", err)
	}
	if info.IsDir() {
		return job.Handle{}, services.Wrap(services.ErrPermanent, "s3", "store", fmt.Sprintf("%s is a directory", localPath), nil)
	}

	ext := strings.ToLower(filepath.Ext(localPath))
	key := s.objectKey(ext)
	input := &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	}
	if contentType := contentTypeFor(ext); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	started := time.Now()
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return job.Handle{}, classify("store", err)
	}
	handle := job.Handle{Bucket: s.bucket, Key: key, URI: fmt.Sprintf("s3://%s/%s", s.bucket, key)}
	logging.WithContext(ctx, s.logger).Info("uploaded audio",
		logging.String("uri", handle.URI),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return handle, nil
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, handle job.Handle) error {
	bucket := handle.Bucket
	if bucket == "" {
		bucket = s.bucket
	}
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(handle.Key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil
		}
		return classify("delete", err)
	}
	return nil
}

// CheckBucket verifies the bucket exists and is reachable with the current
// credentials.
func (s *Store) CheckBucket(ctx context.Context) error {
	if strings.TrimSpace(s.bucket) == "" {
		return services.Wrap(services.ErrConfiguration, "s3", "check bucket", "no bucket configured", nil)
	}
	if _, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return classify("check bucket", err)
	}
	return nil
}

// Bucket returns the upload bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// objectKey is prefix + "audio_" + uuid + "_" + UTC timestamp + extension.
func (s *Store) objectKey(ext string) string {
	stamp := s.now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%saudio_%s_%s%s", s.prefix, s.newID(), stamp, ext)
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".amr":  "audio/amr",
}

func contentTypeFor(ext string) string {
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

var permanentCodes = map[string]struct{}{
	"AccessDenied":          {},
	"NoSuchBucket":          {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"InvalidBucketName":     {},
	"AllAccessDisabled":     {},
	"EntityTooLarge":        {},
}

func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := permanentCodes[apiErr.ErrorCode()]; ok {
			return services.Wrap(services.ErrPermanent, "s3", op, apiErr.ErrorCode(), err)
		}
	}
	return services.Wrap(services.ErrTransient, "s3", op, "", err)
}

var _ job.Storage = (*Store)(nil)
