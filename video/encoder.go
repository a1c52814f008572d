package video

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/modpmv/modpmv/ffmpeg"
)

// encodeStrategy is one way of turning the composited frame stream into the
// final file. The renderer tries the preferred strategy first and falls back
// to the next when it fails; both must never drop the terminal partial slice.
type encodeStrategy interface {
	name() string
	beginSlice()
	writeFrame(*image.RGBA) error
	endSlice() error
	// finish closes the stream, muxes the audio track and leaves the result
	// at the output path.
	finish() error
	// abort releases resources and removes temporaries; safe after finish.
	abort()
}

// streamStrategy pipes raw RGBA frames into a single long-lived ffmpeg
// process that encodes and muxes in one pass.
type streamStrategy struct {
	outPath string
	started bool
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *bytes.Buffer
}

func newStreamStrategy(outPath, audioPath string, size image.Point, fps int) (*streamStrategy, error) {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-framerate", fmt.Sprint(fps),
		"-i", "pipe:0",
	}
	if audioPath != "" {
		args = append(args,
			"-i", audioPath,
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:a", "aac",
			"-shortest",
		)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-loglevel", "error",
		outPath,
	)
	cmd, stdin, stderr, err := ffmpeg.Start(args...)
	if err != nil {
		return nil, err
	}
	return &streamStrategy{outPath: outPath, started: true, cmd: cmd, stdin: stdin, stderr: stderr}, nil
}

func (s *streamStrategy) name() string { return "ffmpeg stream" }

func (s *streamStrategy) beginSlice() {}

func (s *streamStrategy) writeFrame(f *image.RGBA) error {
	if _, err := s.stdin.Write(f.Pix); err != nil {
		return fmt.Errorf("write frame to encoder: %w", err)
	}
	return nil
}

func (s *streamStrategy) endSlice() error { return nil }

func (s *streamStrategy) finish() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg stream encode failed: %w: %s", err, s.stderr.String())
	}
	s.started = false
	return nil
}

func (s *streamStrategy) abort() {
	if s.started {
		s.stdin.Close()
		s.cmd.Wait()
		s.started = false
	}
	os.Remove(s.outPath)
}

// concatStrategy writes each slice as its own intermediate file, then joins
// them with ffmpeg's concat demuxer and muxes the audio. Slower and heavier
// on disk, but each ffmpeg invocation is small and independent, which is why
// it is the fallback when the one-pass stream fails.
type concatStrategy struct {
	outPath   string
	audioPath string
	size      image.Point
	fps       int
	tmpDir    string
	frames    []*image.RGBA
	files     []string
}

func newConcatStrategy(outPath, audioPath string, size image.Point, fps int) (*concatStrategy, error) {
	if !ffmpeg.Available() {
		return nil, ffmpeg.ErrUnavailable
	}
	tmpDir, err := os.MkdirTemp("", "modpmv_rows_")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &concatStrategy{outPath: outPath, audioPath: audioPath, size: size, fps: fps, tmpDir: tmpDir}, nil
}

func (s *concatStrategy) name() string { return "ffmpeg concat" }

func (s *concatStrategy) beginSlice() { s.frames = s.frames[:0] }

func (s *concatStrategy) writeFrame(f *image.RGBA) error {
	s.frames = append(s.frames, f)
	return nil
}

func (s *concatStrategy) endSlice() error {
	if len(s.frames) == 0 {
		return nil
	}
	path := filepath.Join(s.tmpDir, fmt.Sprintf("row_%05d.mp4", len(s.files)))
	if err := encodeFrames(s.frames, s.size, s.fps, path); err != nil {
		return err
	}
	s.files = append(s.files, path)
	return nil
}

func (s *concatStrategy) finish() error {
	defer os.RemoveAll(s.tmpDir)
	if len(s.files) == 0 {
		return fmt.Errorf("concat encode: no slice files were produced")
	}
	listPath := filepath.Join(s.tmpDir, "inputs.txt")
	var list strings.Builder
	for _, f := range s.files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	// stream copy first; re-encode only when the copy concat refuses
	_, err := ffmpeg.Run(nil, "-y", "-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", "-loglevel", "error", s.outPath)
	if err != nil {
		_, err2 := ffmpeg.Run(nil, "-y", "-f", "concat", "-safe", "0", "-i", listPath,
			"-c:v", "libx264", "-preset", "fast", "-crf", "18", "-loglevel", "error", s.outPath)
		if err2 != nil {
			return fmt.Errorf("ffmpeg concat failed (copy: %v; re-encode: %w)", err, err2)
		}
	}
	if s.audioPath != "" {
		if err := muxAudio(s.outPath, s.audioPath); err != nil {
			return err
		}
	}
	return nil
}

func (s *concatStrategy) abort() {
	os.RemoveAll(s.tmpDir)
	os.Remove(s.outPath)
}

// muxAudio re-muxes the audio track into the finished video in place.
func muxAudio(videoPath, audioPath string) error {
	muxPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "_mux" + filepath.Ext(videoPath)
	_, err := ffmpeg.Run(nil,
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-loglevel", "error",
		muxPath,
	)
	if err != nil {
		os.Remove(muxPath)
		return fmt.Errorf("mux audio: %w", err)
	}
	return os.Rename(muxPath, videoPath)
}
