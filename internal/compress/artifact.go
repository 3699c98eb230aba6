package compress

import "watcher/internal/fileutil"

// Stage identifies which step produced an artifact.
type Stage string

const (
	StageMerged          Stage = "merged"
	StageCompressed      Stage = "compressed"
	StageExtraCompressed Stage = "extraCompressed"
	StageEmergency       Stage = "emergency"
)

// Artifact is an output file of the merge or compression stages.
type Artifact struct {
	Path      string
	SizeBytes int64
	Stage     Stage
}

// NewArtifact measures path and labels it with stage.
func NewArtifact(path string, stage Stage) (Artifact, error) {
	size, err := fileutil.Size(path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, SizeBytes: size, Stage: stage}, nil
}

// Fits reports whether the artifact is within budget bytes.
func (a Artifact) Fits(budget int64) bool {
	return a.SizeBytes <= budget
}
