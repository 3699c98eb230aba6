package integrity

import (
	"context"
	"log/slog"

	"watcher/internal/fileutil"
	"watcher/internal/logging"
	"watcher/internal/services"
)

// Segment is one raw recording prepared for merging. Path is the file handed
// to the merger; it differs from Original when the segment was repaired.
type Segment struct {
	Original  string
	Path      string
	SizeBytes int64
	Verified  bool
	Repaired  bool
}

// Checker runs verification and, on failure, one repair attempt per segment.
type Checker struct {
	verifier *Verifier
	repairer *Repairer
	logger   *slog.Logger
}

// NewChecker wires a Verifier and Repairer together.
func NewChecker(verifier *Verifier, repairer *Repairer, logger *slog.Logger) *Checker {
	return &Checker{verifier: verifier, repairer: repairer, logger: logging.NewComponentLogger(logger, "integrity")}
}

// Prepare checks each path in order. Usable segments keep input order;
// unrecoverable ones are returned separately and are never retried this run.
func (c *Checker) Prepare(ctx context.Context, paths []string) (usable []Segment, rejected []string) {
	for _, path := range paths {
		if ctx.Err() != nil {
			return usable, rejected
		}
		segCtx := services.WithSegment(ctx, path)
		size, _ := fileutil.Size(path)
		seg := Segment{Original: path, Path: path, SizeBytes: size}

		if c.verifier.Verify(segCtx, path) {
			seg.Verified = true
			usable = append(usable, seg)
			continue
		}

		logging.WithContext(segCtx, c.logger).Info("segment failed verification; attempting repair")
		repaired, ok := c.repairer.Repair(segCtx, path)
		if !ok {
			logging.ErrorWithContext(logging.WithContext(segCtx, c.logger), "segment unrecoverable", "segment_unrecoverable",
				logging.String(logging.FieldErrorHint, "file is kept on disk for manual inspection"),
			)
			rejected = append(rejected, path)
			continue
		}
		seg.Path = repaired
		seg.Verified = true
		seg.Repaired = true
		if size, err := fileutil.Size(repaired); err == nil {
			seg.SizeBytes = size
		}
		usable = append(usable, seg)
	}
	return usable, rejected
}
