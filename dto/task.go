package dto

import (
	"errors"
	"time"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskFinished = errors.New("task already finished")
)

type UploadResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
}

// ProgressEvent is the payload of one progress stream event.
type ProgressEvent struct {
	TaskID          string     `json:"task_id"`
	Status          string     `json:"status"`
	Percent         int        `json:"percent"`
	ETASeconds      int        `json:"eta_seconds"`
	Message         string     `json:"message"`
	DownloadURL     *string    `json:"download_url"`
	Filename        string     `json:"filename"`
	StartedAt       *time.Time `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	DurationSeconds *float64   `json:"duration_seconds"`
}

// StreamError is sent once, in place of progress, for an unknown task.
type StreamError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CancelResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
