// Package media downloads remote media and converts its audio track.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
)

// runFunc executes an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Options configures the audio acquirer.
type Options struct {
	YtDlpPath  string
	FFmpegPath string
	Log        zerolog.Logger
}

// Acquirer downloads the best audio stream of a URL with yt-dlp and
// converts it with ffmpeg to 16 kHz mono 16-bit WAV.
type Acquirer struct {
	ytdlp  string
	ffmpeg string
	run    runFunc
	log    zerolog.Logger
}

// NewAcquirer creates an audio acquirer.
func NewAcquirer(opts Options) *Acquirer {
	if opts.YtDlpPath == "" {
		opts.YtDlpPath = "yt-dlp"
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	return &Acquirer{
		ytdlp:  opts.YtDlpPath,
		ffmpeg: opts.FFmpegPath,
		run:    execRun,
		log:    opts.Log.With().Str("component", "audio").Logger(),
	}
}

// Available reports whether both yt-dlp and ffmpeg are on the PATH.
func (a *Acquirer) Available() bool {
	if _, err := exec.LookPath(a.ytdlp); err != nil {
		return false
	}
	_, err := exec.LookPath(a.ffmpeg)
	return err == nil
}

// Acquire writes the audio of url to destPath as a WAV file. The
// intermediate download is removed whether or not conversion succeeds.
func (a *Acquirer) Acquire(ctx context.Context, url, destPath string) error {
	tmpPath := destPath + ".temp"
	defer os.Remove(tmpPath)

	a.log.Info().Str("url", url).Msg("downloading audio")
	out, err := a.run(ctx, a.ytdlp,
		url,
		"-f", "bestaudio",
		"--no-playlist",
		"--no-progress",
		"-o", tmpPath,
	)
	if err != nil {
		return fmt.Errorf("yt-dlp download failed: %w\n%s", err, string(out))
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return fmt.Errorf("yt-dlp produced no output: %w", err)
	}

	// ffmpeg -y -i input -ac 1 -ar 16000 -sample_fmt s16 -f wav output
	a.log.Debug().Str("input", tmpPath).Str("output", destPath).Msg("converting audio to 16 kHz mono wav")
	out, err = a.run(ctx, a.ffmpeg,
		"-y", "-i", tmpPath,
		"-vn",
		"-ac", "1", "-ar", "16000",
		"-sample_fmt", "s16",
		"-f", "wav",
		destPath,
	)
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("ffmpeg convert failed: %w\n%s", err, string(out))
	}
	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}

	a.log.Info().Str("path", destPath).Msg("audio processed")
	return nil
}
