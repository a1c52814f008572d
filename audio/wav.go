package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// LoadWAV decodes a .wav file into a segment, upmixing mono and resampling to
// the internal rate when needed.
func LoadWAV(path string) (Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return Segment{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Segment{}, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Segment{}, fmt.Errorf("decode wav %s: %w", path, err)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return Segment{}, fmt.Errorf("%s: no channels", path)
	}
	scale := float32(math.Pow(2, float64(d.BitDepth-1)))
	frames := len(buf.Data) / channels
	data := make([]float32, frames*numChannels)
	for i := 0; i < frames; i++ {
		l := float32(buf.Data[i*channels]) / scale
		r := l
		if channels > 1 {
			r = float32(buf.Data[i*channels+1]) / scale
		}
		data[i*2] = l
		data[i*2+1] = r
	}
	seg := Segment{data: data}
	if rate := buf.Format.SampleRate; rate != SampleRate && rate > 0 {
		seg = resample(seg, rate)
	}
	return seg, nil
}

// resample converts a segment recorded at fromRate to the internal rate using
// linear interpolation. Good enough for row-length one-shots; anything that
// needs better quality should come in at 44100 Hz.
func resample(s Segment, fromRate int) Segment {
	inFrames := s.Frames()
	if inFrames == 0 {
		return s
	}
	outFrames := int(math.Round(float64(inFrames) * SampleRate / float64(fromRate)))
	out := make([]float32, outFrames*numChannels)
	step := float64(fromRate) / SampleRate
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		if j >= inFrames-1 {
			j = inFrames - 1
		}
		frac := float32(pos - float64(j))
		k := j + 1
		if k >= inFrames {
			k = j
		}
		out[i*2] = s.data[j*2]*(1-frac) + s.data[k*2]*frac
		out[i*2+1] = s.data[j*2+1]*(1-frac) + s.data[k*2+1]*frac
	}
	return Segment{data: out}
}

// Wav serializes the segment as a .wav file; pcm16 selects 16-bit integer
// output, otherwise 32-bit IEEE floats are written.
func Wav(s Segment, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	wavHeader(len(s.data), pcm16, buf)
	err := rawToBuffer(s.data, pcm16, buf)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

func rawToBuffer(data []float32, pcm16 bool, buf *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data))
		for i, v := range data {
			int16data[i] = int16(clamp(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

// wavHeader writes a wave header for either float32 or int16 .wav file into
// the bytes.buffer. It needs to know the length of the buffer and assumes
// stereo sound, so the length in stereo samples (L + R) is bufferlength / 2.
// If pcm16 = true, then the header is for int16 audio; pcm16 = false means
// the header is for float32 audio. Assumes 44100 Hz sample rate.
func wavHeader(bufferLength int, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	sampleRate := SampleRate
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))            // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength)) // sample length
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
