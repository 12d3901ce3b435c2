package service

import (
	"path/filepath"

	"sheetTranslator/dto"
	"sheetTranslator/models"
	"sheetTranslator/registry"
)

type TaskService struct {
	registry  *registry.Registry
	processor *Processor
}

func NewTaskService(reg *registry.Registry, processor *Processor) *TaskService {
	return &TaskService{
		registry:  reg,
		processor: processor,
	}
}

// CreateTask registers an idle task for the uploaded file and hands it to the
// processor. inputPath must live in a directory owned by the task; that
// directory is removed once the task finishes.
func (s *TaskService) CreateTask(inputPath, filename string) string {
	taskID := s.registry.Create(models.Task{
		Status:   models.StatusIdle,
		TmpDir:   filepath.Dir(inputPath),
		Filename: filename,
	})
	s.processor.Start(taskID, inputPath)
	return taskID
}

func (s *TaskService) GetTask(taskID string) (models.Task, error) {
	task, ok := s.registry.Snapshot(taskID)
	if !ok {
		return models.Task{}, dto.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) CancelTask(taskID string) error {
	accepted, found := s.registry.RequestCancel(taskID)
	if !found {
		return dto.ErrTaskNotFound
	}
	if !accepted {
		return dto.ErrTaskFinished
	}
	return nil
}

// OutputPath resolves a download name inside the output directory. It
// reports false for names that are not translated output files.
func (s *TaskService) OutputPath(filename string) (string, bool) {
	if !s.processor.IsOutputName(filename) {
		return "", false
	}
	return filepath.Join(s.processor.OutputDir(), filename), true
}
