package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/modpmv/modpmv/ffmpeg"
)

// Load reads an audio file into a segment. Plain .wav files decode natively;
// every other container is decoded through ffmpeg to raw float32 PCM at the
// internal rate. A failed load is reported to the caller, which degrades the
// channel to silence instead of aborting the render.
func Load(path string) (Segment, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return LoadWAV(path)
	}
	return loadFFmpeg(path)
}

func loadFFmpeg(path string) (Segment, error) {
	out, err := ffmpeg.Run(nil,
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(numChannels),
		"-loglevel", "error",
		"pipe:1",
	)
	if err != nil {
		return Segment{}, fmt.Errorf("decode %s: %w", path, err)
	}
	out = out[:len(out)/4*4]
	data := make([]float32, len(out)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
	}
	return FromFloats(data), nil
}
