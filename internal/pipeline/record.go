package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/snarg/speechscope/internal/transcript"
)

// Artifact directories under the data root. Paths stored in run records
// point into these, so the layout must stay stable.
const (
	ScreenshotsDir = "screenshots"
	AudioDir       = "audio"
	TranscriptsDir = "transcripts"
)

// RunRecord is the persisted outcome of one run. A successful run carries
// Transcript; a failed run carries Error and whichever artifacts existed
// when it failed.
type RunRecord struct {
	ID                string                 `json:"id"`
	URL               string                 `json:"url"`
	ScreenshotPath    string                 `json:"screenshot_path,omitempty"`
	AudioPath         string                 `json:"audio_path,omitempty"`
	TranscriptPath    string                 `json:"transcript_path,omitempty"`
	Transcript        *transcript.Transcript `json:"transcript,omitempty"`
	UsingMockAnalyzer bool                   `json:"using_mock_analyzer"`
	Error             string                 `json:"error,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

// Failed reports whether the run ended in error.
func (r *RunRecord) Failed() bool { return r.Error != "" }

// Paths are the artifact locations of one run.
type Paths struct {
	Screenshot string
	Audio      string
	Transcript string
}

// NewPaths derives the artifact locations for run id under dataDir.
func NewPaths(dataDir, id string) Paths {
	return Paths{
		Screenshot: filepath.Join(dataDir, ScreenshotsDir, id+".png"),
		Audio:      filepath.Join(dataDir, AudioDir, id+".wav"),
		Transcript: filepath.Join(dataDir, TranscriptsDir, id+".json"),
	}
}

// EnsureDirs creates the parent directories of every artifact.
func (p Paths) EnsureDirs() error {
	for _, path := range []string{p.Screenshot, p.Audio, p.Transcript} {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
