package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"sheetTranslator/models"
	"sheetTranslator/pool"
	"sheetTranslator/registry"
	"sheetTranslator/spreadsheet"
	"sheetTranslator/translator"
)

const (
	titleHeader = "title"

	DefaultBatchSize    = 10
	DefaultBatchPause   = 2 * time.Second
	DefaultHeaderMarker = "中文"
	DefaultOutputSuffix = "中文翻译"
)

var ErrTitleColumnNotFound = errors.New("Title column not found")

// Reporter receives task snapshots after every saved batch and once the task
// has finished. Errors are logged and otherwise ignored.
type Reporter interface {
	Report(ctx context.Context, task models.Task) error
}

type Options struct {
	OutputDir    string
	HeaderMarker string
	OutputSuffix string
	BatchSize    int
	BatchPause   time.Duration
}

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = os.TempDir()
	}
	if o.HeaderMarker == "" {
		o.HeaderMarker = DefaultHeaderMarker
	}
	if o.OutputSuffix == "" {
		o.OutputSuffix = DefaultOutputSuffix
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchPause < 0 {
		o.BatchPause = 0
	}
	return o
}

type Processor struct {
	registry   *registry.Registry
	translator translator.Translator
	pool       *pool.WorkerPool
	reporters  []Reporter
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
	pause      func(ctx context.Context, d time.Duration)
}

func NewProcessor(reg *registry.Registry, tr translator.Translator, workers *pool.WorkerPool, opts Options, logger *zap.Logger, reporters ...Reporter) *Processor {
	return &Processor{
		registry:   reg,
		translator: tr,
		pool:       workers,
		reporters:  reporters,
		opts:       opts.withDefaults(),
		logger:     logger,
		now:        time.Now,
		pause:      sleepContext,
	}
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// OutputPath is where the translated copy of inputPath is written. Uploads
// sharing a file name share an output path.
func (p *Processor) OutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(p.opts.OutputDir, name+"_"+p.opts.OutputSuffix+".xlsx")
}

func (p *Processor) OutputDir() string {
	return p.opts.OutputDir
}

// IsOutputName reports whether name has the shape of a translated output
// file. Other names are never served for download.
func (p *Processor) IsOutputName(name string) bool {
	suffix := "_" + p.opts.OutputSuffix + ".xlsx"
	return filepath.Base(name) == name && len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}

// Start runs the task in the background. Progress and the outcome are only
// visible through the registry.
func (p *Processor) Start(taskID, inputPath string) {
	p.pool.Submit(func(ctx context.Context) {
		p.Run(ctx, taskID, inputPath)
	})
}

// Run processes one task to a terminal status. It never returns an error:
// every failure ends up in the task record.
func (p *Processor) Run(ctx context.Context, taskID, inputPath string) {
	startedAt := p.now()
	p.registry.Update(taskID, func(t *models.Task) {
		t.Status = models.StatusRunning
		t.Message = "reading file..."
		t.Percent = 0
		t.StartedAt = &startedAt
	})

	logger := p.logger.With(zap.String("task_id", taskID))
	logger.Info("Task started", zap.String("input", inputPath))

	defer p.cleanup(taskID, inputPath, logger)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Task panicked", zap.Any("panic", r))
			p.fail(taskID, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := p.process(ctx, taskID, inputPath, logger); err != nil {
		logger.Error("Task failed", zap.Error(err))
		p.fail(taskID, err)
	}
}

func (p *Processor) process(ctx context.Context, taskID, inputPath string, logger *zap.Logger) error {
	wb, err := spreadsheet.Open(inputPath)
	if err != nil {
		return err
	}
	defer wb.Close()

	titleCol, err := findTitleColumn(wb)
	if err != nil {
		return err
	}

	insertCol := titleCol + 1
	marker, err := wb.Cell(1, insertCol)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if marker != p.opts.HeaderMarker {
		if err := wb.InsertColumn(insertCol); err != nil {
			return fmt.Errorf("insert column: %w", err)
		}
		if err := wb.SetCell(1, insertCol, p.opts.HeaderMarker); err != nil {
			return fmt.Errorf("label column: %w", err)
		}
	}

	rows, err := rowsToTranslate(wb, titleCol)
	if err != nil {
		return err
	}
	total := len(rows)
	p.registry.Update(taskID, func(t *models.Task) {
		t.Total = total
		t.Current = 0
	})

	if total == 0 {
		p.terminate(taskID, func(t *models.Task) {
			t.Status = models.StatusDone
			t.Percent = 100
			t.ETASeconds = 0
			t.Message = "nothing to translate"
		})
		logger.Info("No rows to translate")
		return nil
	}

	outputPath := p.OutputPath(inputPath)
	start := p.now()
	// A row that has started is always translated; ctx only stops the task
	// between batches.
	rowCtx := context.WithoutCancel(ctx)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for batchStart := 0; batchStart < total; batchStart += p.opts.BatchSize {
		if p.cancelRequested(ctx, taskID) {
			p.terminate(taskID, func(t *models.Task) {
				t.Status = models.StatusCanceled
				t.Message = "canceled"
			})
			logger.Info("Task canceled", zap.Int("translated", batchStart))
			return nil
		}

		batchEnd := min(batchStart+p.opts.BatchSize, total)
		for i := batchStart; i < batchEnd; i++ {
			row := rows[i]
			source, err := wb.Cell(row, titleCol)
			if err != nil {
				return fmt.Errorf("read row %d: %w", row, err)
			}
			translated := p.translator.Translate(rowCtx, source)
			if err := wb.SetCell(row, insertCol, translated); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}

			p.recordProgress(taskID, i+1, total, p.now().Sub(start))
		}

		if err := wb.SaveAs(outputPath); err != nil {
			return err
		}
		p.report(taskID)

		if batchEnd < total && p.opts.BatchPause > 0 {
			p.pause(ctx, p.opts.BatchPause)
		}
	}

	downloadName := filepath.Base(outputPath)
	p.terminate(taskID, func(t *models.Task) {
		t.Status = models.StatusDone
		t.Percent = 100
		t.ETASeconds = 0
		t.Message = fmt.Sprintf("translation finished, %d rows processed", total)
		t.DownloadFilename = downloadName
	})
	logger.Info("Task completed", zap.Int("rows", total), zap.String("output", outputPath))
	return nil
}

func findTitleColumn(wb *spreadsheet.Workbook) (int, error) {
	header, err := wb.Header()
	if err != nil {
		return 0, err
	}
	for i, cell := range header {
		if strings.ToLower(strings.TrimSpace(cell)) == titleHeader {
			return i + 1, nil
		}
	}
	return 0, ErrTitleColumnNotFound
}

func rowsToTranslate(wb *spreadsheet.Workbook, titleCol int) ([]int, error) {
	maxRow, err := wb.MaxRow()
	if err != nil {
		return nil, err
	}

	var rows []int
	for row := 2; row <= maxRow; row++ {
		value, err := wb.Cell(row, titleCol)
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		if strings.TrimSpace(value) != "" {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (p *Processor) recordProgress(taskID string, current, total int, elapsed time.Duration) {
	eta := 0
	if current > 0 {
		eta = int(float64(total-current) * elapsed.Seconds() / float64(current))
	}
	percent := current * 100 / total

	p.registry.Update(taskID, func(t *models.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Current = current
		if percent > t.Percent {
			t.Percent = percent
		}
		t.ETASeconds = eta
		t.Message = fmt.Sprintf("translating (%d/%d)", current, total)
	})
}

func (p *Processor) cancelRequested(ctx context.Context, taskID string) bool {
	if ctx.Err() != nil {
		return true
	}
	task, ok := p.registry.Snapshot(taskID)
	return ok && task.CancelRequested
}

// terminate applies fn and stamps the finish time unless the task already
// reached a terminal status.
func (p *Processor) terminate(taskID string, fn func(t *models.Task)) {
	finishedAt := p.now()
	p.registry.Update(taskID, func(t *models.Task) {
		if t.Status.Terminal() {
			return
		}
		fn(t)
		t.FinishedAt = &finishedAt
		if t.StartedAt != nil {
			d := finishedAt.Sub(*t.StartedAt).Seconds()
			t.DurationSeconds = &d
		}
	})
}

func (p *Processor) fail(taskID string, err error) {
	p.terminate(taskID, func(t *models.Task) {
		t.Status = models.StatusError
		t.Message = err.Error()
		t.DownloadFilename = ""
	})
}

func (p *Processor) cleanup(taskID, inputPath string, logger *zap.Logger) {
	dir := filepath.Dir(inputPath)
	if task, ok := p.registry.Snapshot(taskID); ok && task.TmpDir != "" {
		dir = task.TmpDir
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("Failed to remove temp dir", zap.String("dir", dir), zap.Error(err))
	}

	p.report(taskID)
	p.registry.ScheduleEviction(taskID)
}

func (p *Processor) report(taskID string) {
	if len(p.reporters) == 0 {
		return
	}
	task, ok := p.registry.Snapshot(taskID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, r := range p.reporters {
		if err := r.Report(ctx, task); err != nil {
			p.logger.Warn("Failed to report task",
				zap.String("task_id", taskID),
				zap.String("status", string(task.Status)),
				zap.Error(err),
			)
		}
	}
}
