package video

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/modpmv/modpmv/ffmpeg"
)

// decodeClip decodes a video file into canvas-sized RGBA frames at the
// target frame rate, via ffmpeg's rawvideo output. The whole clip is decoded;
// slices tile or truncate it as needed.
func decodeClip(path string, size image.Point, fps int) ([]*image.RGBA, error) {
	out, err := ffmpeg.Run(nil,
		"-i", path,
		"-vf", fmt.Sprintf("scale=%d:%d", size.X, size.Y),
		"-r", fmt.Sprint(fps),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-loglevel", "error",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("decode clip %s: %w", path, err)
	}
	frameBytes := size.X * size.Y * 4
	if frameBytes == 0 || len(out) < frameBytes {
		return nil, fmt.Errorf("decode clip %s: no frames", path)
	}
	frames := make([]*image.RGBA, 0, len(out)/frameBytes)
	for off := 0; off+frameBytes <= len(out); off += frameBytes {
		img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		copy(img.Pix, out[off:off+frameBytes])
		frames = append(frames, img)
	}
	return frames, nil
}

// loadImage decodes a still image and scales it to the canvas size.
func loadImage(path string, size image.Point) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// encodeFrames writes a frame sequence as one video file through a single
// ffmpeg invocation, feeding raw RGBA over stdin. No audio track.
func encodeFrames(frames []*image.RGBA, size image.Point, fps int, outPath string) error {
	var buf bytes.Buffer
	for _, f := range frames {
		buf.Write(f.Pix)
	}
	_, err := ffmpeg.Run(&buf,
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-framerate", fmt.Sprint(fps),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-loglevel", "error",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("encode %s: %w", outPath, err)
	}
	return nil
}
