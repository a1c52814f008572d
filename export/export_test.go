package export_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modpmv/modpmv/export"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readManifest(t *testing.T, path string) export.Manifest {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m export.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	return m
}

func TestPackage(t *testing.T) {
	src := t.TempDir()
	audio := writeFile(t, filepath.Join(src, "track.mp3"), "audio-bytes")
	videoOut := writeFile(t, filepath.Join(src, "track.mp4"), "video-bytes")
	kick := writeFile(t, filepath.Join(src, "kick.mp4"), "kick-bytes")
	snare := writeFile(t, filepath.Join(src, "snare.mp4"), "snare-bytes")

	dst := filepath.Join(t.TempDir(), "export")
	manifestPath, err := export.Package(export.Request{
		Dir:       dst,
		Title:     "demo song",
		AudioPath: audio,
		VideoPath: videoOut,
		Order:     []int{0, 1, 0},
		Patterns:  2,
		Slices: []export.Slice{
			{Start: 0, Duration: 0.25, PatternIndex: 0, RowIndex: 0, Used: []string{kick}},
			{Start: 0.25, Duration: 0.25, PatternIndex: 0, RowIndex: 1, Used: []string{kick, snare}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	man := readManifest(t, manifestPath)
	if man.ModuleTitle != "demo song" {
		t.Errorf("title = %q", man.ModuleTitle)
	}
	if man.Audio != "track.mp3" || man.Video != "track.mp4" {
		t.Errorf("outputs = %q, %q", man.Audio, man.Video)
	}
	if len(man.CopiedVideoClips) != 2 {
		t.Fatalf("copied clips = %v, want kick and snare once each", man.CopiedVideoClips)
	}
	if man.PatternsCount != 2 || len(man.Order) != 3 {
		t.Errorf("order/patterns = %v/%d", man.Order, man.PatternsCount)
	}
	if len(man.Timeline) != 2 {
		t.Fatalf("timeline entries = %d, want 2", len(man.Timeline))
	}
	if got := man.Timeline[1].UsedFiles; len(got) != 2 || got[0] != "kick.mp4" || got[1] != "snare.mp4" {
		t.Errorf("slice 1 used files = %v, want copied basenames", got)
	}

	for _, name := range []string{"track.mp3", "track.mp4", "video_clips/kick.mp4", "video_clips/snare.mp4"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("expected copy %s: %v", name, err)
		}
	}
}

func TestPackageSkipsMissingClips(t *testing.T) {
	src := t.TempDir()
	audio := writeFile(t, filepath.Join(src, "a.mp3"), "a")
	videoOut := writeFile(t, filepath.Join(src, "v.mp4"), "v")

	dst := filepath.Join(t.TempDir(), "export")
	manifestPath, err := export.Package(export.Request{
		Dir:       dst,
		AudioPath: audio,
		VideoPath: videoOut,
		Slices: []export.Slice{
			{Used: []string{filepath.Join(src, "vanished.mp4")}},
		},
	})
	if err != nil {
		t.Fatalf("missing clip must degrade, got %v", err)
	}
	man := readManifest(t, manifestPath)
	if len(man.CopiedVideoClips) != 0 {
		t.Errorf("copied clips = %v, want none", man.CopiedVideoClips)
	}
	if len(man.Timeline[0].UsedFiles) != 0 {
		t.Errorf("timeline still references vanished clip: %v", man.Timeline[0].UsedFiles)
	}
}

func TestPackageNoManifestOnFailure(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "export")
	_, err := export.Package(export.Request{
		Dir:       dst,
		AudioPath: filepath.Join(dst, "missing.mp3"),
		VideoPath: filepath.Join(dst, "missing.mp4"),
	})
	if err == nil {
		t.Fatal("missing audio must fail the export")
	}
	if _, statErr := os.Stat(filepath.Join(dst, "manifest.json")); statErr == nil {
		t.Fatal("failed export must not write a manifest")
	}
}

func TestPackageRenamesClipBasenameCollisions(t *testing.T) {
	srcA := t.TempDir()
	srcB := t.TempDir()
	audio := writeFile(t, filepath.Join(srcA, "a.mp3"), "a")
	videoOut := writeFile(t, filepath.Join(srcA, "v.mp4"), "v")
	clipA := writeFile(t, filepath.Join(srcA, "kick.mp4"), "A")
	clipB := writeFile(t, filepath.Join(srcB, "kick.mp4"), "B")

	dst := filepath.Join(t.TempDir(), "export")
	manifestPath, err := export.Package(export.Request{
		Dir:       dst,
		AudioPath: audio,
		VideoPath: videoOut,
		Slices: []export.Slice{
			{Used: []string{clipA, clipB}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	man := readManifest(t, manifestPath)
	if len(man.CopiedVideoClips) != 2 {
		t.Fatalf("copied clips = %v, want both kicks", man.CopiedVideoClips)
	}
	if man.CopiedVideoClips[0] == man.CopiedVideoClips[1] {
		t.Fatalf("basename collision not resolved: %v", man.CopiedVideoClips)
	}
}
