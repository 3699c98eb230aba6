package detection

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	boxThickness = 2
	labelPadding = 2
	jpegQuality  = 90
)

var (
	boxColor     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	labelText    = color.Black
	overlayBack  = color.RGBA{A: 160}
	overlayColor = color.White
)

// Screenshot is an annotated alert image on disk.
type Screenshot struct {
	Path           string
	Detections     []Detection
	SourceVideo    string
	VideoTimestamp float64
	CreatedAt      time.Time
	Delivered      bool
}

// ScreenshotName builds person_<videoStem>_t<seconds>s_<YYYYMMDD_HHMMSS>.jpg.
func ScreenshotName(sourceVideo string, videoTimestamp float64, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(sourceVideo), filepath.Ext(sourceVideo))
	return fmt.Sprintf("person_%s_t%ss_%s.jpg",
		stem,
		strconv.FormatFloat(videoTimestamp, 'f', 1, 64),
		now.Format("20060102_150405"),
	)
}

// Renderer draws detections onto frames and writes them as JPEG files.
type Renderer struct {
	dir  string
	now  func() time.Time
	face font.Face
}

// NewRenderer writes screenshots into dir. A nil now uses time.Now.
func NewRenderer(dir string, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{dir: dir, now: now, face: basicfont.Face7x13}
}

// Render decodes frame, draws each detection's box and "Person 0.87" label,
// overlays wall time, video time, source name, and person count, and writes
// the result.
func (r *Renderer) Render(frame []byte, sourceVideo string, videoTimestamp float64, detections []Detection) (Screenshot, error) {
	src, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return Screenshot{}, fmt.Errorf("decode frame: %w", err)
	}
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, d := range detections {
		box := clampRect(image.Rect(int(d.X1), int(d.Y1), int(d.X2), int(d.Y2)), canvas.Bounds())
		if box.Empty() {
			continue
		}
		strokeRect(canvas, box, boxColor)
		r.drawLabel(canvas, box, fmt.Sprintf("Person %.2f", d.Confidence))
	}

	now := r.now()
	r.drawOverlay(canvas, []string{
		now.Format("2006-01-02 15:04:05") + "  t=" + FormatVideoTime(videoTimestamp),
		filepath.Base(sourceVideo),
		fmt.Sprintf("Persons: %d", len(detections)),
	})

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Screenshot{}, fmt.Errorf("encode screenshot: %w", err)
	}
	path := filepath.Join(r.dir, ScreenshotName(sourceVideo, videoTimestamp, now))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Screenshot{}, fmt.Errorf("write screenshot: %w", err)
	}
	return Screenshot{
		Path:           path,
		Detections:     detections,
		SourceVideo:    sourceVideo,
		VideoTimestamp: videoTimestamp,
		CreatedAt:      now,
	}, nil
}

// FormatVideoTime renders seconds as m:ss.s.
func FormatVideoTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}

func (r *Renderer) drawLabel(canvas *image.RGBA, box image.Rectangle, text string) {
	width := font.MeasureString(r.face, text).Ceil() + 2*labelPadding
	height := r.face.Metrics().Height.Ceil() + labelPadding
	top := box.Min.Y - height
	if top < canvas.Bounds().Min.Y {
		top = box.Min.Y
	}
	back := clampRect(image.Rect(box.Min.X, top, box.Min.X+width, top+height), canvas.Bounds())
	draw.Draw(canvas, back, image.NewUniform(boxColor), image.Point{}, draw.Src)
	r.drawText(canvas, back.Min.X+labelPadding, top, text, labelText)
}

func (r *Renderer) drawOverlay(canvas *image.RGBA, lines []string) {
	lineHeight := r.face.Metrics().Height.Ceil() + labelPadding
	width := 0
	for _, line := range lines {
		if w := font.MeasureString(r.face, line).Ceil(); w > width {
			width = w
		}
	}
	origin := canvas.Bounds().Min
	back := clampRect(image.Rect(origin.X, origin.Y, origin.X+width+2*labelPadding, origin.Y+lineHeight*len(lines)+labelPadding), canvas.Bounds())
	draw.Draw(canvas, back, image.NewUniform(overlayBack), image.Point{}, draw.Over)
	for i, line := range lines {
		r.drawText(canvas, origin.X+labelPadding, origin.Y+i*lineHeight, line, overlayColor)
	}
}

// drawText draws text with its line box starting at top.
func (r *Renderer) drawText(canvas *image.RGBA, x, top int, text string, c color.Color) {
	drawer := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, top+r.face.Metrics().Ascent.Ceil()+labelPadding/2),
	}
	drawer.DrawString(text)
}

func strokeRect(canvas *image.RGBA, box image.Rectangle, c color.Color) {
	fill := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+boxThickness),
		image.Rect(box.Min.X, box.Max.Y-boxThickness, box.Max.X, box.Max.Y),
		image.Rect(box.Min.X, box.Min.Y, box.Min.X+boxThickness, box.Max.Y),
		image.Rect(box.Max.X-boxThickness, box.Min.Y, box.Max.X, box.Max.Y),
	}
	for _, edge := range edges {
		draw.Draw(canvas, edge.Intersect(box), fill, image.Point{}, draw.Src)
	}
}

func clampRect(r, bounds image.Rectangle) image.Rectangle {
	return r.Canon().Intersect(bounds)
}
