package models

import (
	"time"
)

type TaskStatus string

const (
	StatusIdle     TaskStatus = "idle"
	StatusRunning  TaskStatus = "running"
	StatusDone     TaskStatus = "done"
	StatusError    TaskStatus = "error"
	StatusCanceled TaskStatus = "canceled"
)

// Terminal reports whether no further transitions may happen from s.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusCanceled:
		return true
	default:
		return false
	}
}

type Task struct {
	ID               string     `json:"id"`
	Status           TaskStatus `json:"status"`
	Percent          int        `json:"percent"`
	Total            int        `json:"total"`
	Current          int        `json:"current"`
	ETASeconds       int        `json:"eta_seconds"`
	Message          string     `json:"message"`
	CancelRequested  bool       `json:"cancel_requested"`
	TmpDir           string     `json:"tmp_dir"`
	Filename         string     `json:"filename"`
	DownloadFilename string     `json:"download_filename,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	DurationSeconds  *float64   `json:"duration_seconds,omitempty"`
}

// Clone returns a copy that shares no memory with t.
func (t Task) Clone() Task {
	c := t
	if t.StartedAt != nil {
		v := *t.StartedAt
		c.StartedAt = &v
	}
	if t.FinishedAt != nil {
		v := *t.FinishedAt
		c.FinishedAt = &v
	}
	if t.DurationSeconds != nil {
		v := *t.DurationSeconds
		c.DurationSeconds = &v
	}
	return c
}
