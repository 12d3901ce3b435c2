package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"sheetTranslator/models"
)

const DefaultTopic = "translation_tasks"

// TaskEvent announces that a task reached a terminal status.
type TaskEvent struct {
	TaskID           string    `json:"task_id"`
	Status           string    `json:"status"`
	Filename         string    `json:"filename"`
	DownloadFilename string    `json:"download_filename,omitempty"`
	Rows             int       `json:"rows"`
	Translated       int       `json:"translated"`
	Message          string    `json:"message"`
	FinishedAt       time.Time `json:"finished_at"`
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return NewProducerWith(p, topic), nil
}

func NewProducerWith(p sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{producer: p, topic: topic}
}

// Report publishes finished tasks and ignores in-flight snapshots.
func (p *Producer) Report(ctx context.Context, task models.Task) error {
	if !task.Status.Terminal() {
		return nil
	}

	event := TaskEvent{
		TaskID:           task.ID,
		Status:           string(task.Status),
		Filename:         task.Filename,
		DownloadFilename: task.DownloadFilename,
		Rows:             task.Total,
		Translated:       task.Current,
		Message:          task.Message,
	}
	if task.FinishedAt != nil {
		event.FinishedAt = *task.FinishedAt
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(task.ID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
