package domain

import "time"

// FailureReport is a journal entry for a failure that went through the
// handler chain.
type FailureReport struct {
	ID         string    `json:"id"          db:"id"`
	Kind       string    `json:"kind"        db:"kind"`
	Message    string    `json:"message"     db:"message"`
	File       string    `json:"file"        db:"file"`
	Line       int       `json:"line"        db:"line"`
	StatusCode int       `json:"status_code" db:"status_code"`
	Severity   string    `json:"severity"    db:"severity"`
	Causes     []string  `json:"causes"      db:"-"`
	Trace      string    `json:"trace"       db:"trace"`
	Origin     Origin    `json:"origin"      db:"origin"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// Origin tells which entry point a failure came in through.
type Origin string

const (
	OriginException Origin = "exception"
	OriginError     Origin = "error"
	OriginShutdown  Origin = "shutdown"
)
