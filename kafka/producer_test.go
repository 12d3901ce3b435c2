package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"

	"sheetTranslator/models"
)

func TestProducer_Report_TerminalTask(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event TaskEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.TaskID != "abc" || event.Status != "done" || event.Rows != 12 {
			return fmt.Errorf("unexpected event %+v", event)
		}
		return nil
	})

	p := NewProducerWith(mock, "")
	defer p.Close()

	finished := time.Now()
	err := p.Report(context.Background(), models.Task{
		ID:               "abc",
		Status:           models.StatusDone,
		Total:            12,
		Current:          12,
		DownloadFilename: "in_中文翻译.xlsx",
		FinishedAt:       &finished,
	})
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
}

func TestProducer_Report_SkipsRunningTask(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := NewProducerWith(mock, "custom")
	defer p.Close()

	if err := p.Report(context.Background(), models.Task{ID: "abc", Status: models.StatusRunning}); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
}
