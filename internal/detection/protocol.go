package detection

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// PersonClass is the detector class id for a person.
const PersonClass = 0

// maxMessageBytes bounds a single protocol message. A 4K JPEG frame stays
// well below it.
const maxMessageBytes = 64 << 20

// Frame is one sampled video frame handed to the detector.
type Frame struct {
	Data           []byte
	Width          int
	Height         int
	Seq            int
	VideoTimestamp float64
}

// Detection is one bounding box reported by the detector, in pixel
// coordinates of the submitted frame.
type Detection struct {
	X1         float64 `msgpack:"x1"`
	Y1         float64 `msgpack:"y1"`
	X2         float64 `msgpack:"x2"`
	Y2         float64 `msgpack:"y2"`
	Confidence float64 `msgpack:"confidence"`
	ClassID    int     `msgpack:"class_id"`
}

type requestMeta struct {
	Seq            int     `msgpack:"seq"`
	VideoTimestamp float64 `msgpack:"video_timestamp"`
}

type request struct {
	FrameData []byte      `msgpack:"frame_data"`
	Width     int         `msgpack:"width"`
	Height    int         `msgpack:"height"`
	Meta      requestMeta `msgpack:"meta"`
}

type responseTiming struct {
	InferenceMS float64 `msgpack:"inference_ms"`
}

type response struct {
	Detections []Detection    `msgpack:"detections"`
	Timing     responseTiming `msgpack:"timing"`
	Error      string         `msgpack:"error,omitempty"`
}

func newRequest(frame Frame) request {
	return request{
		FrameData: frame.Data,
		Width:     frame.Width,
		Height:    frame.Height,
		Meta:      requestMeta{Seq: frame.Seq, VideoTimestamp: frame.VideoTimestamp},
	}
}

// writeMessage writes v as a 4-byte big-endian length followed by its
// msgpack encoding.
func writeMessage(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// readMessage reads one length-prefixed msgpack message into v.
func readMessage(r io.Reader, v any) error {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return fmt.Errorf("read length prefix: %w", err)
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if length > maxMessageBytes {
		return fmt.Errorf("message length %d exceeds limit", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read message: %w", err)
	}
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// Qualifying keeps person detections at or above threshold, in input order.
func Qualifying(detections []Detection, threshold float64) []Detection {
	var out []Detection
	for _, d := range detections {
		if d.ClassID == PersonClass && d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}
