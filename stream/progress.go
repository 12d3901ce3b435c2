// Package stream turns repeated registry snapshots into a progress event
// sequence for a single subscriber.
package stream

import (
	"context"
	"iter"
	"net/url"
	"time"

	"sheetTranslator/dto"
	"sheetTranslator/models"
)

const (
	DefaultInterval = 200 * time.Millisecond

	EventProgress = "progress"
)

type Source interface {
	Snapshot(taskID string) (models.Task, bool)
}

// Event is one message of the stream. An empty Name marks the unnamed event
// sent for an unknown task.
type Event struct {
	Name string
	Data any
}

type Streamer struct {
	source   Source
	interval time.Duration
}

func NewStreamer(source Source, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Streamer{source: source, interval: interval}
}

// Events yields one event per tick until the task reaches a terminal status,
// the task disappears, the consumer stops or ctx is done. The event carrying
// the terminal status is always yielded before the sequence ends.
func (s *Streamer) Events(ctx context.Context, taskID string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		timer := time.NewTimer(s.interval)
		defer timer.Stop()

		for {
			task, ok := s.source.Snapshot(taskID)
			if !ok {
				yield(Event{Data: dto.StreamError{
					Status:  string(models.StatusError),
					Message: dto.ErrTaskNotFound.Error(),
				}})
				return
			}

			if !yield(Event{Name: EventProgress, Data: Progress(task)}) {
				return
			}
			if task.Status.Terminal() {
				return
			}

			timer.Reset(s.interval)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}
}

func Progress(task models.Task) dto.ProgressEvent {
	var downloadURL *string
	if task.DownloadFilename != "" {
		link := DownloadURL(task.DownloadFilename)
		downloadURL = &link
	}

	return dto.ProgressEvent{
		TaskID:          task.ID,
		Status:          string(task.Status),
		Percent:         task.Percent,
		ETASeconds:      task.ETASeconds,
		Message:         task.Message,
		DownloadURL:     downloadURL,
		Filename:        task.Filename,
		StartedAt:       task.StartedAt,
		FinishedAt:      task.FinishedAt,
		DurationSeconds: task.DurationSeconds,
	}
}

func DownloadURL(filename string) string {
	return "/download/" + url.PathEscape(filename)
}
