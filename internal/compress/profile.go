package compress

import (
	"fmt"
	"strconv"
)

// Profile is one fixed re-encode setting. Profiles are values and never
// mutated; the ladder order is Light, Aggressive, Extra, Emergency.
type Profile struct {
	Name string
	// CRF drives quality-based encodes. Zero means VideoBitrate is used.
	CRF          int
	VideoBitrate string
	Preset       string
	// Scale is a linear factor applied to both dimensions. Ignored when
	// Width and Height are set.
	Scale        float64
	Width        int
	Height       int
	AudioBitrate string
	// FrameRateCap limits output fps. Zero keeps the source rate.
	FrameRateCap int
}

var (
	Light      = Profile{Name: "light", CRF: 28, Preset: "veryfast", Scale: 1.0, AudioBitrate: "128k"}
	Aggressive = Profile{Name: "aggressive", CRF: 32, Preset: "faster", Scale: 1.0, AudioBitrate: "96k"}
	Extra      = Profile{Name: "extra", CRF: 36, Preset: "faster", Scale: 0.8, AudioBitrate: "64k"}
	Emergency  = Profile{Name: "emergency", VideoBitrate: "300k", Preset: "veryfast", Width: 640, Height: 360, AudioBitrate: "32k", FrameRateCap: 15}
)

// InitialProfile picks the first pass for an input of size bytes: Light when
// the input already fits, Aggressive otherwise.
func InitialProfile(size, budget int64) Profile {
	if size <= budget {
		return Light
	}
	return Aggressive
}

// Args builds the ffmpeg arguments that encode input to output.
func (p Profile) Args(input, output string) []string {
	args := []string{
		"-i", input,
		"-c:v", "libx264",
		"-preset", p.Preset,
	}
	if p.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(p.CRF))
	} else if p.VideoBitrate != "" {
		args = append(args, "-b:v", p.VideoBitrate, "-maxrate", p.VideoBitrate, "-bufsize", p.VideoBitrate)
	}
	if filter := p.scaleFilter(); filter != "" {
		args = append(args, "-vf", filter)
	}
	if p.FrameRateCap > 0 {
		args = append(args, "-r", strconv.Itoa(p.FrameRateCap))
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", p.AudioBitrate,
		"-movflags", "+faststart",
		output,
	)
	return args
}

// scaleFilter keeps both dimensions even, which libx264 requires.
func (p Profile) scaleFilter() string {
	if p.Width > 0 && p.Height > 0 {
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease:force_divisible_by=2", p.Width, p.Height)
	}
	if p.Scale <= 0 || p.Scale == 1.0 {
		return ""
	}
	factor := strconv.FormatFloat(p.Scale, 'f', -1, 64)
	return fmt.Sprintf("scale=trunc(iw*%s/2)*2:trunc(ih*%s/2)*2", factor, factor)
}
