package detection

import (
	"context"
	"math"
	"strconv"
	"time"

	"watcher/internal/media/ffmpeg"
	"watcher/internal/services"
)

// SamplePoint is one frame selected for analysis.
type SamplePoint struct {
	Index     int64
	Timestamp float64
}

// SampleStep returns the frame stride for one sample per interval of video
// time. It is never below 1.
func SampleStep(fps float64, interval time.Duration) int64 {
	step := int64(math.Round(fps * interval.Seconds()))
	if step < 1 {
		return 1
	}
	return step
}

// SamplePoints lists frame indices 0, step, 2*step, ... below frameCount in
// increasing video-time order.
func SamplePoints(fps float64, frameCount int64, interval time.Duration) []SamplePoint {
	if fps <= 0 || frameCount <= 0 {
		return nil
	}
	step := SampleStep(fps, interval)
	points := make([]SamplePoint, 0, frameCount/step+1)
	for idx := int64(0); idx < frameCount; idx += step {
		points = append(points, SamplePoint{Index: idx, Timestamp: float64(idx) / fps})
	}
	return points
}

// Sampler extracts single frames as JPEG bytes.
type Sampler struct {
	runner ffmpeg.Runner
}

// NewSampler constructs a Sampler.
func NewSampler(runner ffmpeg.Runner) *Sampler {
	return &Sampler{runner: runner}
}

// Extract returns the JPEG-encoded frame at timestamp seconds into video.
func (s *Sampler) Extract(ctx context.Context, video string, timestamp float64) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", video,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}
	data, err := s.runner.Run(ctx, args...)
	if err != nil {
		marker := services.ErrExternalTool
		if ffmpeg.TimedOut(err) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "detection", "extract frame", video, err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "detection", "extract frame", "ffmpeg returned no frame data", nil)
	}
	return data, nil
}
