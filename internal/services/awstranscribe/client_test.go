package awstranscribe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/smithy-go"

	"transcriptor/internal/job"
	"transcriptor/internal/services"
	"transcriptor/internal/services/awstranscribe"
)

type fakeAPI struct {
	startErr error
	started  []*transcribe.StartTranscriptionJobInput
	job      *types.TranscriptionJob
	getErr   error
}

func (f *fakeAPI) StartTranscriptionJob(_ context.Context, in *transcribe.StartTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error) {
	f.started = append(f.started, in)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &transcribe.StartTranscriptionJobOutput{}, nil
}

func (f *fakeAPI) GetTranscriptionJob(_ context.Context, _ *transcribe.GetTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &transcribe.GetTranscriptionJobOutput{TranscriptionJob: f.job}, nil
}

func newClient(api awstranscribe.API, opts ...awstranscribe.Option) *awstranscribe.Client {
	opts = append(opts, awstranscribe.WithIDGenerator(func() string { return "abc" }))
	return awstranscribe.New(api, nil, opts...)
}

func TestSubmitWithLanguageAndSpeakers(t *testing.T) {
	api := &fakeAPI{}
	handle := job.Handle{Bucket: "b", Key: "p/audio_1.mp3", URI: "s3://b/p/audio_1.mp3"}
	name, err := newClient(api).Submit(context.Background(), handle, job.SubmitOptions{
		LanguageHint: "en-GB", SpeakerLabels: true, MinSpeakers: 2, MaxSpeakers: 4,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if name != "transcriptor_abc" {
		t.Fatalf("name = %q", name)
	}
	in := api.started[0]
	if in.LanguageCode != types.LanguageCode("en-GB") || in.IdentifyLanguage != nil {
		t.Fatalf("unexpected language settings %v %v", in.LanguageCode, in.IdentifyLanguage)
	}
	if in.MediaFormat != types.MediaFormatMp3 || aws.ToString(in.Media.MediaFileUri) != handle.URI {
		t.Fatalf("unexpected media %v %v", in.MediaFormat, aws.ToString(in.Media.MediaFileUri))
	}
	if in.Settings == nil || !aws.ToBool(in.Settings.ShowSpeakerLabels) || aws.ToInt32(in.Settings.MaxSpeakerLabels) != 4 {
		t.Fatalf("unexpected settings %+v", in.Settings)
	}
}

func TestSubmitIdentifiesLanguageWithoutHint(t *testing.T) {
	api := &fakeAPI{}
	_, err := newClient(api).Submit(context.Background(), job.Handle{Key: "x.unknown", URI: "s3://b/x.unknown"}, job.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	in := api.started[0]
	if !aws.ToBool(in.IdentifyLanguage) || in.LanguageCode != "" || in.Settings != nil || in.MediaFormat != "" {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestSubmitClassifiesErrors(t *testing.T) {
	bad := &smithy.GenericAPIError{Code: "BadRequestException", Message: "invalid media"}
	_, err := newClient(&fakeAPI{startErr: bad}).Submit(context.Background(), job.Handle{}, job.SubmitOptions{})
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	limit := &smithy.GenericAPIError{Code: "LimitExceededException", Message: "slow down"}
	_, err = newClient(&fakeAPI{startErr: limit}).Submit(context.Background(), job.Handle{}, job.SubmitOptions{})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestPollMapsStatus(t *testing.T) {
	cases := []struct {
		name string
		job  *types.TranscriptionJob
		want job.PollResult
	}{
		{"queued", &types.TranscriptionJob{TranscriptionJobStatus: types.TranscriptionJobStatusQueued}, job.PollResult{Status: job.PollRunning}},
		{"in progress", &types.TranscriptionJob{TranscriptionJobStatus: types.TranscriptionJobStatusInProgress}, job.PollResult{Status: job.PollRunning}},
		{"completed", &types.TranscriptionJob{
			TranscriptionJobStatus: types.TranscriptionJobStatusCompleted,
			Transcript:             &types.Transcript{TranscriptFileUri: aws.String("https://results/x.json")},
		}, job.PollResult{Status: job.PollCompleted, ResultLocation: "https://results/x.json"}},
		{"failed", &types.TranscriptionJob{
			TranscriptionJobStatus: types.TranscriptionJobStatusFailed,
			FailureReason:          aws.String("bad sample rate"),
		}, job.PollResult{Status: job.PollFailed, Reason: "bad sample rate"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newClient(&fakeAPI{job: tc.job}).Poll(context.Background(), "transcriptor_abc")
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Poll = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"results":{}}`))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("expired"))
		}
	}))
	defer srv.Close()

	client := newClient(&fakeAPI{}, awstranscribe.WithHTTPClient(srv.Client()))
	body, err := client.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil || string(body) != `{"results":{}}` {
		t.Fatalf("Fetch ok = %q, %v", body, err)
	}
	if _, err := client.Fetch(context.Background(), srv.URL+"/busy"); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error for 503, got %v", err)
	}
	_, err = client.Fetch(context.Background(), srv.URL+"/denied")
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error for 403, got %v", err)
	}
}

func TestMediaFormat(t *testing.T) {
	if f, ok := awstranscribe.MediaFormat("a/B.FLAC"); !ok || f != types.MediaFormatFlac {
		t.Fatalf("MediaFormat = %v, %v", f, ok)
	}
	if _, ok := awstranscribe.MediaFormat("noext"); ok {
		t.Fatal("expected no format")
	}
}
