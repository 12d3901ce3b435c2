package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-contrib/sse"
	"go.uber.org/zap"

	"sheetTranslator/dto"
	"sheetTranslator/middleware"
	"sheetTranslator/models"
	"sheetTranslator/stream"
	"sheetTranslator/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TaskService interface {
	CreateTask(inputPath, filename string) string
	GetTask(taskID string) (models.Task, error)
	CancelTask(taskID string) error
	OutputPath(filename string) (string, bool)
}

type ProgressStreamer interface {
	Events(ctx context.Context, taskID string) iter.Seq[stream.Event]
}

type TaskHandler struct {
	service     TaskService
	streamer    ProgressStreamer
	logger      *zap.Logger
	maxFileSize int64
	uploadRoot  string
}

// NewTaskHandler builds the HTTP surface. Uploads are stored in fresh
// directories under uploadRoot, or the system temp dir when it is empty.
func NewTaskHandler(service TaskService, streamer ProgressStreamer, logger *zap.Logger, maxFileSize int64, uploadRoot string) *TaskHandler {
	return &TaskHandler{
		service:     service,
		streamer:    streamer,
		logger:      logger,
		maxFileSize: maxFileSize,
		uploadRoot:  uploadRoot,
	}
}

func (h *TaskHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /progress/{id}", h.Progress)
	mux.HandleFunc("GET /tasks/{id}", h.Status)
	mux.HandleFunc("POST /tasks/{id}/cancel", h.Cancel)
	mux.HandleFunc("GET /download/{filename}", h.Download)
}

func (h *TaskHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+(1<<20))
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleError(w, validation.ErrFileTooLarge.Error(), err, traceID, http.StatusRequestEntityTooLarge)
			return
		}
		h.handleError(w, validation.ErrNoFile.Error(), err, traceID, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, validation.ErrNoFile.Error(), err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := h.validateFile(header.Filename, header.Size, file); err != nil {
		h.handleError(w, err.Error(), err, traceID, http.StatusBadRequest)
		return
	}

	dir, err := os.MkdirTemp(h.uploadRoot, "upload-")
	if err != nil {
		h.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
		return
	}

	filename := validation.SanitizeFilename(header.Filename)
	filePath := filepath.Join(dir, filename)
	if err := saveFile(filePath, file); err != nil {
		os.RemoveAll(dir)
		h.handleError(w, "Failed to write file", err, traceID, http.StatusInternalServerError)
		return
	}

	taskID := h.service.CreateTask(filePath, filename)

	h.logger.Info("File uploaded",
		zap.String("trace_id", traceID),
		zap.String("task_id", taskID),
		zap.String("filename", filename),
	)

	h.respondJSON(w, http.StatusAccepted, dto.UploadResponse{
		Success: true,
		TaskID:  taskID,
	})
}

func (h *TaskHandler) validateFile(filename string, size int64, file io.ReadSeeker) error {
	if err := validation.CheckFilename(filename); err != nil {
		return err
	}
	if err := validation.CheckSize(size, h.maxFileSize); err != nil {
		return err
	}
	return validation.CheckContent(file)
}

func saveFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (h *TaskHandler) Progress(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())
	taskID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.handleError(w, "Streaming unsupported", nil, traceID, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", sse.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.streamer.Events(r.Context(), taskID) {
		if err := sse.Encode(w, sse.Event{Event: ev.Name, Data: ev.Data}); err != nil {
			h.logger.Warn("Progress stream closed",
				zap.String("trace_id", traceID),
				zap.String("task_id", taskID),
				zap.Error(err),
			)
			return
		}
		flusher.Flush()
	}
}

func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	task, err := h.service.GetTask(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, dto.ErrTaskNotFound) {
			h.handleError(w, dto.ErrTaskNotFound.Error(), err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())
	taskID := r.PathValue("id")

	err := h.service.CancelTask(taskID)
	switch {
	case errors.Is(err, dto.ErrTaskNotFound):
		h.handleError(w, err.Error(), err, traceID, http.StatusNotFound)
		return
	case errors.Is(err, dto.ErrTaskFinished):
		h.handleError(w, err.Error(), err, traceID, http.StatusConflict)
		return
	case err != nil:
		h.handleError(w, "Failed to cancel task", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Cancel requested",
		zap.String("trace_id", traceID),
		zap.String("task_id", taskID),
	)

	h.respondJSON(w, http.StatusAccepted, dto.CancelResponse{
		TaskID: taskID,
		Status: "cancel_requested",
	})
}

func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, ok := h.service.OutputPath(name)
	if !ok {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *TaskHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Warn(message,
		zap.String("trace_id", traceID),
		zap.Int("status", status),
		zap.Error(err),
	)

	h.respondJSON(w, status, dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
