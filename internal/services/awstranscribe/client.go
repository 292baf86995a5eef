// Package awstranscribe submits jobs to Amazon Transcribe, polls their status,
// and downloads finished result documents.
package awstranscribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"transcriptor/internal/job"
	"transcriptor/internal/logging"
	"transcriptor/internal/services"
)

// JobNamePrefix starts every remote job name.
const JobNamePrefix = "transcriptor_"

// maxResultBytes bounds result downloads.
const maxResultBytes = 64 << 20

// API is the subset of the Transcribe client used here.
type API interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// Client implements job.Recognizer.
type Client struct {
	api        API
	httpClient *http.Client
	logger     *slog.Logger
	newID      func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used to download results.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithIDGenerator overrides the unique part of job names.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// New wraps an existing API client.
func New(api API, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		api:        api,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logging.NewComponentLogger(logger, "transcribe"),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Transcribe client from SDK configuration.
func NewFromConfig(awsCfg aws.Config, logger *slog.Logger, opts ...Option) *Client {
	return New(transcribe.NewFromConfig(awsCfg), logger, opts...)
}

// Submit starts a transcription job and returns its name.
func (c *Client) Submit(ctx context.Context, handle job.Handle, opts job.SubmitOptions) (string, error) {
	name := JobNamePrefix + c.newID()
	input := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
		Media:                &types.Media{MediaFileUri: aws.String(handle.URI)},
	}
	if format, ok := MediaFormat(handle.Key); ok {
		input.MediaFormat = format
	}
	if opts.LanguageHint != "" {
		input.LanguageCode = types.LanguageCode(opts.LanguageHint)
	} else {
		input.IdentifyLanguage = aws.Bool(true)
	}
	if opts.SpeakerLabels {
		input.Settings = &types.Settings{
			ShowSpeakerLabels: aws.Bool(true),
			MaxSpeakerLabels:  aws.Int32(int32(opts.MaxSpeakers)),
		}
	}

	if _, err := c.api.StartTranscriptionJob(ctx, input); err != nil {
		return "", classify("submit", err)
	}
	logging.WithContext(ctx, c.logger).Info("transcription job submitted",
		logging.String("remote_job_id", name),
		logging.String("language", languageLabel(opts.LanguageHint)),
		logging.Bool("speaker_labels", opts.SpeakerLabels),
	)
	return name, nil
}

// Poll reports the job's status.
func (c *Client) Poll(ctx context.Context, remoteJobID string) (job.PollResult, error) {
	out, err := c.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(remoteJobID),
	})
	if err != nil {
		return job.PollResult{}, classify("poll", err)
	}
	tj := out.TranscriptionJob
	if tj == nil {
		return job.PollResult{}, services.Wrap(services.ErrTransient, "transcribe", "poll", "response has no job", nil)
	}
	switch tj.TranscriptionJobStatus {
	case types.TranscriptionJobStatusCompleted:
		var location string
		if tj.Transcript != nil {
			location = aws.ToString(tj.Transcript.TranscriptFileUri)
		}
		return job.PollResult{Status: job.PollCompleted, ResultLocation: location}, nil
	case types.TranscriptionJobStatusFailed:
		return job.PollResult{Status: job.PollFailed, Reason: aws.ToString(tj.FailureReason)}, nil
	default:
		return job.PollResult{Status: job.PollRunning}, nil
	}
}

// Fetch downloads the result document.
func (c *Client) Fetch(ctx context.Context, resultLocation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultLocation, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "transcribe", "fetch", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "fetch", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, services.Wrap(services.ErrTransient, "transcribe", "fetch", msg, nil)
		}
		return nil, services.Wrap(services.ErrPermanent, "transcribe", "fetch", msg, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "fetch", "read body", err)
	}
	if len(body) > maxResultBytes {
		return nil, services.Wrap(services.ErrPermanent, "transcribe", "fetch", "result document too large", nil)
	}
	return body, nil
}

var mediaFormats = map[string]types.MediaFormat{
	".mp3":  types.MediaFormatMp3,
	".mp4":  types.MediaFormatMp4,
	".m4a":  types.MediaFormatM4a,
	".wav":  types.MediaFormatWav,
	".flac": types.MediaFormatFlac,
	".ogg":  types.MediaFormatOgg,
	".amr":  types.MediaFormatAmr,
	".webm": types.MediaFormatWebm,
}

// MediaFormat maps an object key's extension to a Transcribe media format.
// Unknown extensions leave the format for the service to detect.
func MediaFormat(key string) (types.MediaFormat, bool) {
	format, ok := mediaFormats[strings.ToLower(filepath.Ext(key))]
	return format, ok
}

var permanentCodes = map[string]struct{}{
	"BadRequestException":         {},
	"ConflictException":           {},
	"NotFoundException":           {},
	"AccessDeniedException":       {},
	"UnrecognizedClientException": {},
}

func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := permanentCodes[apiErr.ErrorCode()]; ok {
			return services.Wrap(services.ErrPermanent, "transcribe", op, apiErr.ErrorMessage(), err)
		}
	}
	return services.Wrap(services.ErrTransient, "transcribe", op, "", err)
}

func languageLabel(hint string) string {
	if hint == "" {
		return "auto"
	}
	return hint
}

var _ job.Recognizer = (*Client)(nil)
