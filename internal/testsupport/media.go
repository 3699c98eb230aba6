package testsupport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"watcher/internal/media/ffprobe"
)

// Media simulates ffmpeg and ffprobe against real files. Every ffmpeg
// invocation writes its last argument as the output file unless the output is
// a pipe, in which case Frame is returned as stdout.
type Media struct {
	mu         sync.Mutex
	calls      [][]string
	unreadable map[string]bool
	durations  map[string]float64

	// Size returns the output size in bytes. Nil keeps the input size, or the
	// sum of listed files for concat manifests.
	Size func(args []string, input string) int64
	// Fail makes an invocation fail without writing output.
	Fail func(args []string) error
	// Frame is returned for pipe:1 outputs.
	Frame []byte
}

// NewMedia returns an empty fake toolchain.
func NewMedia() *Media {
	return &Media{
		unreadable: make(map[string]bool),
		durations:  make(map[string]float64),
		Frame:      []byte{0xff, 0xd8, 0xff, 0xd9},
	}
}

// MarkUnreadable makes Inspect fail for the given paths, including paths not
// yet written.
func (m *Media) MarkUnreadable(paths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range paths {
		m.unreadable[path] = true
	}
}

// SetDuration overrides the duration Inspect reports for path.
func (m *Media) SetDuration(path string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[path] = seconds
}

// Calls returns a copy of every ffmpeg argument list seen so far.
func (m *Media) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	for i, call := range m.calls {
		out[i] = slices.Clone(call)
	}
	return out
}

// CountCalls returns how many invocations contained arg.
func (m *Media) CountCalls(arg string) int {
	count := 0
	for _, call := range m.Calls() {
		if slices.Contains(call, arg) {
			count++
		}
	}
	return count
}

// Run implements ffmpeg.Runner.
func (m *Media) Run(ctx context.Context, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, slices.Clone(args))
	fail := m.Fail
	sizeFn := m.Size
	frame := m.Frame
	m.mu.Unlock()

	if fail != nil {
		if err := fail(args); err != nil {
			return nil, err
		}
	}
	if len(args) == 0 {
		return nil, errors.New("no arguments")
	}
	output := args[len(args)-1]
	if output == "pipe:1" {
		return slices.Clone(frame), nil
	}

	input := inputOf(args)
	var size int64
	if sizeFn != nil {
		size = sizeFn(args, input)
	} else {
		size = defaultSize(args, input)
	}
	if err := writeSized(output, size); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if slices.Contains(args, "concat") {
		var total float64
		for _, listed := range manifestEntries(input) {
			total += m.durationLocked(listed)
		}
		m.durations[output] = total
	} else if d, ok := m.durations[input]; ok {
		m.durations[output] = d
	}
	m.mu.Unlock()
	return nil, nil
}

// defaultDuration is what Inspect reports for files without SetDuration.
const defaultDuration = 10.0

func (m *Media) durationLocked(path string) float64 {
	if d, ok := m.durations[path]; ok {
		return d
	}
	return defaultDuration
}

// Inspect implements ffprobe.Prober.
func (m *Media) Inspect(_ context.Context, path string) (ffprobe.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ffprobe.Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	m.mu.Lock()
	bad := m.unreadable[path]
	duration := m.durationLocked(path)
	m.mu.Unlock()
	if bad {
		return ffprobe.Result{}, fmt.Errorf("ffprobe inspect: %s: Invalid data found when processing input", path)
	}
	frames := int64(duration * 30)
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264", Width: 1280, Height: 720, AvgFrameRate: "30/1", NBFrames: strconv.FormatInt(frames, 10)},
			{Index: 1, CodecType: "audio", CodecName: "aac"},
		},
		Format: ffprobe.Format{
			Filename:   path,
			NBStreams:  2,
			FormatName: "mov,mp4,m4a,3gp,3g2,mj2",
			Duration:   strconv.FormatFloat(duration, 'f', 3, 64),
			Size:       strconv.FormatInt(info.Size(), 10),
		},
	}, nil
}

func inputOf(args []string) string {
	input := ""
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			input = args[i+1]
		}
	}
	return input
}

func defaultSize(args []string, input string) int64 {
	if slices.Contains(args, "concat") {
		return manifestSize(input)
	}
	info, err := os.Stat(input)
	if err != nil {
		return 1
	}
	return info.Size()
}

// manifestSize sums the sizes of files listed in a concat manifest.
func manifestSize(path string) int64 {
	var total int64
	for _, listed := range manifestEntries(path) {
		if info, err := os.Stat(listed); err == nil {
			total += info.Size()
		}
	}
	return total
}

func manifestEntries(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		paths = append(paths, ManifestPaths(scanner.Text())...)
	}
	return paths
}

// ManifestPaths decodes one concat manifest line into the path it lists.
func ManifestPaths(line string) []string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
		return nil
	}
	quoted := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
	return []string{strings.ReplaceAll(quoted, `'\''`, "'")}
}
