package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"transcriptor/internal/media/ffprobe"
	"transcriptor/internal/services"
	"transcriptor/internal/source"
	"transcriptor/internal/testsupport"
)

type commandLog struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *commandLog) record(name string, args []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]string{name}, args...))
}

func audioProbe(context.Context, string, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "audio"}},
		Format:  ffprobe.Format{Duration: "61.5"},
	}, nil
}

// fakeFFmpeg writes the output file named by the last argument.
func fakeFFmpeg(log *commandLog) source.Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		log.record(name, args)
		dest := args[len(args)-1]
		return nil, os.WriteFile(dest, []byte("mp3"), 0o644)
	}
}

func newResolver(t *testing.T, opts ...source.Option) (*source.Resolver, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	opts = append([]source.Option{source.WithProber(audioProbe)}, opts...)
	return source.NewResolver(cfg, nil, opts...), cfg.Paths.WorkDir
}

func TestResolveLocalNativeFile(t *testing.T) {
	log := &commandLog{}
	resolver, _ := newResolver(t, source.WithCommandRunner(fakeFFmpeg(log)))
	path := filepath.Join(t.TempDir(), "team_meeting-notes.mp3")
	testsupport.WriteFile(t, path, 64)

	res, err := resolver.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Kind != source.KindFile || res.Path != path || res.Converted {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if res.Title != "Team Meeting Notes" {
		t.Fatalf("title = %q", res.Title)
	}
	if res.Duration.Seconds() != 61.5 {
		t.Fatalf("duration = %s", res.Duration)
	}
	if res.OutputName() != "team_meeting-notes" {
		t.Fatalf("output name = %q", res.OutputName())
	}
	if len(log.calls) != 0 {
		t.Fatalf("native file must not be converted: %v", log.calls)
	}
}

func TestResolveConvertsUnsupportedContainer(t *testing.T) {
	log := &commandLog{}
	resolver, workDir := newResolver(t, source.WithCommandRunner(fakeFFmpeg(log)))
	path := filepath.Join(t.TempDir(), "lecture.mkv")
	testsupport.WriteFile(t, path, 64)

	res, err := resolver.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Converted || filepath.Dir(res.Path) != workDir || filepath.Ext(res.Path) != ".mp3" {
		t.Fatalf("unexpected conversion %+v", res)
	}
	args := strings.Join(log.calls[0], " ")
	if !strings.HasPrefix(args, "ffmpeg ") || !strings.Contains(args, "-b:a 128k") || !strings.Contains(args, "-ar 44100") {
		t.Fatalf("unexpected ffmpeg invocation %q", args)
	}
	res.Cleanup()
	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Fatalf("converted file not cleaned up: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("original input must survive cleanup: %v", err)
	}
}

func TestResolveRejectsBadInputs(t *testing.T) {
	resolver, _ := newResolver(t)
	for _, input := range []string{"", filepath.Join(t.TempDir(), "missing.wav"), t.TempDir()} {
		_, err := resolver.Resolve(context.Background(), input)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Resolve(%q) = %v, want validation error", input, err)
		}
	}
}

func TestResolveLocalFileChecks(t *testing.T) {
	resolver, _ := newResolver(t)
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.wav")
	_, err := resolver.Resolve(context.Background(), missing)
	if !errors.Is(err, services.ErrValidation) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing file: got %v, want not-found validation error", err)
	}

	empty := filepath.Join(dir, "empty.mp3")
	testsupport.WriteFile(t, empty, 0)
	_, err = resolver.Resolve(context.Background(), empty)
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("empty file: got %v, want validation error", err)
	}
	if errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("empty file must be rejected before ffprobe runs: %v", err)
	}
}

func TestResolvePassThroughFormats(t *testing.T) {
	cases := map[string]bool{
		"call.amr":   false,
		"talk.mp4":   false,
		"voice.webm": false,
		"memo.aac":   true,
		"show.mkv":   true,
	}
	for name, wantConverted := range cases {
		t.Run(name, func(t *testing.T) {
			resolver, _ := newResolver(t, source.WithCommandRunner(fakeFFmpeg(&commandLog{})))
			path := filepath.Join(t.TempDir(), name)
			testsupport.WriteFile(t, path, 16)
			res, err := resolver.Resolve(context.Background(), path)
			if err != nil {
				t.Fatalf("Resolve(%s): %v", name, err)
			}
			defer res.Cleanup()
			if res.Converted != wantConverted {
				t.Fatalf("Resolve(%s) converted = %v, want %v", name, res.Converted, wantConverted)
			}
		})
	}
}

func TestResolveRejectsSilentMedia(t *testing.T) {
	noAudio := func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}, nil
	}
	resolver, _ := newResolver(t, source.WithProber(noAudio))
	path := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, path, 8)
	_, err := resolver.Resolve(context.Background(), path)
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "no audio") {
		t.Fatalf("expected no-audio validation error, got %v", err)
	}
}

func TestResolveDirectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/episodes/ep_12.wav" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("RIFF...."))
	}))
	defer srv.Close()

	resolver, workDir := newResolver(t, source.WithHTTPClient(srv.Client()))
	res, err := resolver.Resolve(context.Background(), srv.URL+"/episodes/ep_12.wav")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Kind != source.KindURL || filepath.Dir(res.Path) != workDir || res.Title != "Ep 12" {
		t.Fatalf("unexpected resolution %+v", res)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil || string(data) != "RIFF...." {
		t.Fatalf("download content = %q, %v", data, err)
	}
	res.Cleanup()

	if _, err := resolver.Resolve(context.Background(), srv.URL+"/missing.mp3"); !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error for 404, got %v", err)
	}
	entries, _ := os.ReadDir(workDir)
	if len(entries) != 0 {
		t.Fatalf("failed download left files behind: %v", entries)
	}
}

func TestResolvePlatformUsesYtDlp(t *testing.T) {
	log := &commandLog{}
	var downloaded string
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		log.record(name, args)
		for i, arg := range args {
			if arg == "--output" {
				downloaded = strings.Replace(args[i+1], "%(ext)s", "mp3", 1)
			}
		}
		if err := os.WriteFile(downloaded, []byte("mp3"), 0o644); err != nil {
			return nil, err
		}
		return []byte("Some Talk: Part 1\t" + downloaded + "\n"), nil
	}
	resolver, _ := newResolver(t, source.WithCommandRunner(runner))

	res, err := resolver.Resolve(context.Background(), "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Kind != source.KindPlatform || res.Platform != "YouTube" || res.Path != downloaded {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if res.Title != "Some Talk: Part 1" || res.OutputName() != "Some Talk- Part 1" {
		t.Fatalf("unexpected naming %q / %q", res.Title, res.OutputName())
	}
	call := log.calls[0]
	if call[0] != "yt-dlp" || call[len(call)-1] != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("unexpected yt-dlp call %v", call)
	}
	res.Cleanup()
	if _, err := os.Stat(downloaded); !os.IsNotExist(err) {
		t.Fatal("downloaded file not removed")
	}
}

func TestResolvePlatformFailure(t *testing.T) {
	runner := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("ERROR: video unavailable")
	}
	resolver, _ := newResolver(t, source.WithCommandRunner(runner))
	_, err := resolver.Resolve(context.Background(), "https://youtu.be/gone")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestMatchPlatform(t *testing.T) {
	cases := map[string]string{
		"https://m.youtube.com/watch?v=1":     "YouTube",
		"https://vimeo.com/123":               "Vimeo",
		"https://x.com/user/status/1":         "X (Twitter)",
		"https://artist.bandcamp.com/track/a": "Bandcamp",
	}
	for raw, want := range cases {
		u, _ := url.Parse(raw)
		p, ok := source.MatchPlatform(u)
		if !ok || p.Name != want {
			t.Fatalf("MatchPlatform(%s) = %q, %v; want %q", raw, p.Name, ok, want)
		}
	}
	u, _ := url.Parse("https://notyoutube.com/x")
	if _, ok := source.MatchPlatform(u); ok {
		t.Fatal("lookalike host must not match")
	}
	list := source.Platforms()
	for i := 1; i < len(list); i++ {
		if strings.ToLower(list[i-1].Name) > strings.ToLower(list[i].Name) {
			t.Fatalf("platforms not sorted: %q before %q", list[i-1].Name, list[i].Name)
		}
	}
}

func TestTitleFromPath(t *testing.T) {
	cases := map[string]string{
		"/a/b/quarterly_review.final.mp3": "Quarterly Review Final",
		"/":                               "Untitled",
		"podcast-EP3.wav":                 "Podcast EP3",
	}
	for input, want := range cases {
		if got := source.TitleFromPath(input); got != want {
			t.Errorf("TitleFromPath(%q) = %q, want %q", input, got, want)
		}
	}
}
