package runstore

import (
	"database/sql"
	"time"
)

const runColumns = "id, label, state, started_at, finished_at, segments, rejected, artifact_bytes, emergency, alerts_sent, failure_kind, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		emergency   int
		failureKind sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Label,
		&run.State,
		&startedRaw,
		&finishedRaw,
		&run.Segments,
		&run.Rejected,
		&run.ArtifactBytes,
		&emergency,
		&run.AlertsSent,
		&failureKind,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.Emergency = emergency != 0
	run.FailureKind = failureKind.String
	run.ErrorMessage = errorMsg.String
	return &run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
