package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"transcriptor/internal/config"
	"transcriptor/internal/logging"
	"transcriptor/internal/media/ffprobe"
	"transcriptor/internal/services"
	"transcriptor/internal/textutil"
)

// Kind describes where an input came from.
type Kind string

const (
	KindFile     Kind = "file"
	KindURL      Kind = "url"
	KindPlatform Kind = "platform"
)

// nativeFormats are the media formats Amazon Transcribe accepts without
// conversion.
var nativeFormats = map[string]struct{}{
	".mp3": {}, ".mp4": {}, ".m4a": {}, ".wav": {}, ".flac": {}, ".ogg": {}, ".amr": {}, ".webm": {},
}

// Resolved is a local audio file derived from an input.
type Resolved struct {
	Input    string
	Kind     Kind
	Platform string
	Path     string
	Title    string
	Duration time.Duration
	// Converted is set when ffmpeg re-encoded the input.
	Converted bool

	temporary []string
}

// Cleanup removes files created while resolving.
func (r Resolved) Cleanup() {
	for _, p := range r.temporary {
		_ = os.Remove(p)
	}
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober inspects a media file.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Resolver resolves inputs. It is safe for concurrent use.
type Resolver struct {
	workDir    string
	ffmpeg     string
	ffprobe    string
	ytdlp      string
	run        Runner
	probe      Prober
	httpClient *http.Client
	logger     *slog.Logger
	newID      func() string
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithCommandRunner replaces exec for ffmpeg and yt-dlp.
func WithCommandRunner(run Runner) Option {
	return func(r *Resolver) { r.run = run }
}

// WithProber replaces ffprobe inspection.
func WithProber(probe Prober) Option {
	return func(r *Resolver) { r.probe = probe }
}

// WithHTTPClient replaces the client used for direct downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) { r.httpClient = client }
}

// NewResolver builds a Resolver from configuration. Temporary files go to
// paths.work_dir, or the system temp directory when unset.
func NewResolver(cfg *config.Config, logger *slog.Logger, opts ...Option) *Resolver {
	workDir := strings.TrimSpace(cfg.Paths.WorkDir)
	if workDir == "" {
		workDir = os.TempDir()
	}
	r := &Resolver{
		workDir:    workDir,
		ffmpeg:     cfg.FFmpegBinary(),
		ffprobe:    cfg.FFprobeBinary(),
		ytdlp:      cfg.YtDlpBinary(),
		run:        execRunner,
		probe:      ffprobe.Inspect,
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		logger:     logging.NewComponentLogger(logger, "source"),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces a local audio file for input. On error, nothing is left
// behind in the work directory.
func (r *Resolver) Resolve(ctx context.Context, input string) (res Resolved, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Resolved{}, services.Wrap(services.ErrValidation, "source", "resolve", "empty input", nil)
	}
	defer func() {
		if err != nil {
			res.Cleanup()
			res = Resolved{}
		}
	}()

	res = Resolved{Input: input}
	if u, ok := parseURL(input); ok {
		if platform, ok := MatchPlatform(u); ok {
			res.Kind = KindPlatform
			res.Platform = platform.Name
			err = r.download(ctx, &res)
		} else {
			res.Kind = KindURL
			err = r.fetch(ctx, u, &res)
		}
	} else {
		res.Kind = KindFile
		err = r.local(input, &res)
	}
	if err != nil {
		return res, err
	}

	info, err := r.probe(ctx, r.ffprobe, res.Path)
	if err != nil {
		return res, services.Wrap(services.ErrExternalTool, "source", "probe", res.Path, err)
	}
	if !info.HasAudio() {
		return res, services.Wrap(services.ErrValidation, "source", "probe", fmt.Sprintf("%s has no audio stream", input), nil)
	}
	res.Duration = info.Duration()

	if _, ok := nativeFormats[strings.ToLower(filepath.Ext(res.Path))]; !ok {
		if err := r.convert(ctx, &res); err != nil {
			return res, err
		}
	}

	logging.WithContext(ctx, r.logger).Info("source resolved",
		logging.String("input", input),
		logging.String("kind", string(res.Kind)),
		logging.String("path", res.Path),
		logging.Duration("duration", res.Duration),
		logging.Bool("converted", res.Converted),
	)
	return res, nil
}

func (r *Resolver) local(input string, res *Resolved) error {
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrValidation, "source", "resolve", input, services.ErrNotFound)
		}
		return services.Wrap(services.ErrValidation, "source", "resolve", "stat input", err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrValidation, "source", "resolve", fmt.Sprintf("%s is not a regular file", input), nil)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrValidation, "source", "resolve", fmt.Sprintf("%s is empty", input), nil)
	}
	res.Path = input
	res.Title = TitleFromPath(input)
	return nil
}

// download fetches a platform page's audio through yt-dlp.
func (r *Resolver) download(ctx context.Context, res *Resolved) error {
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "source", "download", "create work directory", err)
	}
	template := filepath.Join(r.workDir, "download_"+r.newID()+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "128K",
		"--output", template,
		"--print", "after_move:%(title)s\t%(filepath)s",
		res.Input,
	}
	out, err := r.run(ctx, r.ytdlp, args...)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "source", "download", res.Platform, err)
	}
	title, file, ok := parsePrint(out)
	if !ok {
		return services.Wrap(services.ErrExternalTool, "source", "download", "yt-dlp did not report an output file", nil)
	}
	res.temporary = append(res.temporary, file)
	res.Path = file
	res.Title = title
	return nil
}

func parsePrint(out []byte) (string, string, bool) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		title, file, found := strings.Cut(strings.TrimSpace(lines[i]), "\t")
		if found && file != "" {
			return strings.TrimSpace(title), strings.TrimSpace(file), true
		}
	}
	return "", "", false
}

// fetch downloads a direct media URL into the work directory.
func (r *Resolver) fetch(ctx context.Context, u *url.URL, res *Resolved) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "source", "fetch", "build request", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "source", "fetch", u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrPermanent, "source", "fetch", fmt.Sprintf("%s returned status %d", u.Host, resp.StatusCode), nil)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(resp.Header.Get("Content-Type")); len(exts) > 0 {
			ext = exts[0]
		}
	}
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "source", "fetch", "create work directory", err)
	}
	dest := filepath.Join(r.workDir, "download_"+r.newID()+ext)
	file, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "source", "fetch", "create download file", err)
	}
	res.temporary = append(res.temporary, dest)
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return services.Wrap(services.ErrTransient, "source", "fetch", "download body", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrTransient, "source", "fetch", "close download", err)
	}
	res.Path = dest
	res.Title = TitleFromPath(u.Path)
	return nil
}

// convert re-encodes the resolved file to MP3.
func (r *Resolver) convert(ctx context.Context, res *Resolved) error {
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "source", "convert", "create work directory", err)
	}
	dest := filepath.Join(r.workDir, "converted_"+r.newID()+".mp3")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", res.Path,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "128k",
		"-ar", "44100",
		dest,
	}
	res.temporary = append(res.temporary, dest)
	if _, err := r.run(ctx, r.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "source", "convert", res.Path, err)
	}
	res.Path = dest
	res.Converted = true
	return nil
}

// TitleFromPath derives a display title from a file name.
func TitleFromPath(p string) string {
	base := path.Base(filepath.ToSlash(p))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" || base == "/" {
		return "Untitled"
	}
	return cases.Title(language.Und, cases.NoLower).String(base)
}

// OutputName is the file name stem used when writing results for res.
func (r Resolved) OutputName() string {
	if r.Kind == KindFile {
		base := filepath.Base(r.Input)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	name := textutil.FileStem(r.Title)
	if name == "" {
		return "transcript"
	}
	return name
}

func parseURL(input string) (*url.URL, bool) {
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return nil, false
	}
	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
