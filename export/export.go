// Package export assembles the final deliverable directory: the rendered
// audio and video, copies of every source clip that made it on screen, and a
// manifest describing how the timeline was assembled. The manifest is written
// last, so a directory containing manifest.json is always a complete export.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

const manifestName = "manifest.json"

// Manifest is the machine-readable description of one export.
type Manifest struct {
	ModuleTitle      string          `json:"module_title"`
	Audio            string          `json:"audio"`
	Video            string          `json:"video"`
	CopiedVideoClips []string        `json:"copied_video_clips"`
	Order            []int           `json:"order"`
	PatternsCount    int             `json:"patterns_count"`
	Timeline         []TimelineEntry `json:"timeline"`
}

// TimelineEntry mirrors one rendered slice; used files are the copied
// basenames under video_clips/, not the original source paths.
type TimelineEntry struct {
	Start        float64  `json:"start"`
	Duration     float64  `json:"duration"`
	PatternIndex int      `json:"pattern_index"`
	RowIndex     int      `json:"row_index"`
	UsedFiles    []string `json:"used_files"`
}

// Slice is the per-slice provenance the packager consumes. It matches the
// video renderer's slice records field for field.
type Slice struct {
	Start        float64
	Duration     float64
	PatternIndex int
	RowIndex     int
	Used         []string
}

// Request carries everything Package needs.
type Request struct {
	Dir        string // destination directory, created if absent
	Title      string
	AudioPath  string
	VideoPath  string
	Order      []int
	Patterns   int
	Slices     []Slice
	Log        *log.Logger
}

// Package copies the rendered outputs and the used clips into req.Dir and
// writes manifest.json. Source clips that have vanished since the render are
// skipped with a log line; the audio and video themselves are mandatory. On
// error no manifest is written.
func Package(req Request) (string, error) {
	clipDir := filepath.Join(req.Dir, "video_clips")
	if err := os.MkdirAll(clipDir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	audioName := filepath.Base(req.AudioPath)
	if err := copyFile(req.AudioPath, filepath.Join(req.Dir, audioName)); err != nil {
		return "", fmt.Errorf("export audio: %w", err)
	}
	videoName := filepath.Base(req.VideoPath)
	if err := copyFile(req.VideoPath, filepath.Join(req.Dir, videoName)); err != nil {
		return "", fmt.Errorf("export video: %w", err)
	}

	// copy each used clip once; remember the copied name per source path so
	// the timeline entries can be rewritten to point inside the export
	copied := map[string]string{}
	var clipNames []string
	for _, slice := range req.Slices {
		for _, src := range slice.Used {
			if _, done := copied[src]; done {
				continue
			}
			name := uniqueName(filepath.Base(src), copied)
			if err := copyFile(src, filepath.Join(clipDir, name)); err != nil {
				logf(req.Log, "export: clip %s: %v; skipping", src, err)
				copied[src] = ""
				continue
			}
			copied[src] = name
			clipNames = append(clipNames, name)
		}
	}

	man := Manifest{
		ModuleTitle:      req.Title,
		Audio:            audioName,
		Video:            videoName,
		CopiedVideoClips: clipNames,
		Order:            req.Order,
		PatternsCount:    req.Patterns,
	}
	if man.Order == nil {
		man.Order = []int{}
	}
	if man.CopiedVideoClips == nil {
		man.CopiedVideoClips = []string{}
	}
	for _, slice := range req.Slices {
		entry := TimelineEntry{
			Start:        slice.Start,
			Duration:     slice.Duration,
			PatternIndex: slice.PatternIndex,
			RowIndex:     slice.RowIndex,
			UsedFiles:    []string{},
		}
		for _, src := range slice.Used {
			if name := copied[src]; name != "" {
				entry.UsedFiles = append(entry.UsedFiles, name)
			}
		}
		man.Timeline = append(man.Timeline, entry)
	}
	if man.Timeline == nil {
		man.Timeline = []TimelineEntry{}
	}

	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	manifestPath := filepath.Join(req.Dir, manifestName)
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return manifestPath, nil
}

// uniqueName avoids two different source paths with the same basename
// clobbering each other inside video_clips/.
func uniqueName(base string, copied map[string]string) string {
	taken := map[string]bool{}
	for _, name := range copied {
		if name != "" {
			taken[name] = true
		}
	}
	if !taken[base] {
		return base
	}
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
