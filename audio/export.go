package audio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modpmv/modpmv/ffmpeg"
)

// Export writes the segment to path, inferring the container from the
// extension. WAV is written natively; lossy containers (mp3, ogg, ...) go
// through ffmpeg at the given bitrate (e.g. "192k"). A lossy target without
// ffmpeg on PATH is fatal: there is no way to honor the request, and the
// error says so.
func Export(s Segment, path, bitrate string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		data, err := Wav(s, true)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	}

	wavData, err := Wav(s, true)
	if err != nil {
		return err
	}
	if bitrate == "" {
		bitrate = "192k"
	}
	_, err = ffmpeg.Run(bytes.NewReader(wavData),
		"-y",
		"-f", "wav",
		"-i", "pipe:0",
		"-b:a", bitrate,
		"-loglevel", "error",
		path,
	)
	if err == ffmpeg.ErrUnavailable {
		return fmt.Errorf("cannot export %s: encoding %s requires ffmpeg, which was not found on PATH; install ffmpeg or export to .wav instead: %w",
			path, filepath.Ext(path), err)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}
