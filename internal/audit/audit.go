package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tablero/tablero/internal/store"
)

// TaskTypeRecord is the asynq task type for audit writes.
const TaskTypeRecord = "audit:record"

// Entry is one append-only audit record: who called what, as which profile,
// when. Written, never read, by this core.
type Entry struct {
	UserID     int64     `json:"user_id"`
	MethodName string    `json:"method"`
	Profile    int64     `json:"profile"`
	At         time.Time `json:"at"`
}

// Recorder accepts audit entries. Implementations are best-effort: a failed
// record is logged and dropped, never surfaced to the dispatch caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// QueueRecorder enqueues entries onto asynq so the write never blocks the
// business call. Backpressure drops the entry.
type QueueRecorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueRecorder constructs a QueueRecorder.
func NewQueueRecorder(client *asynq.Client, logger *slog.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, logger: logger}
}

// Record enqueues the entry. Enqueue failures are logged only.
func (r *QueueRecorder) Record(ctx context.Context, entry Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("audit marshal", slog.Any("error", err))
		return
	}
	task := asynq.NewTask(TaskTypeRecord, payload)
	if _, err := r.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		r.logger.Warn("audit enqueue dropped", slog.Any("error", err))
	}
}

// Writer persists entries through the store. Used by the queue worker and by
// deployments that prefer in-process writes.
type Writer struct {
	store  store.Querier
	logger *slog.Logger
}

// NewWriter constructs a Writer.
func NewWriter(querier store.Querier, logger *slog.Logger) *Writer {
	return &Writer{store: querier, logger: logger}
}

// Write appends the entry. The timestamp is stored in the same second
// resolution the original schema used.
func (w *Writer) Write(ctx context.Context, entry Entry) error {
	_, err := w.store.ExecuteQuery(ctx, "security", "insertAudit",
		entry.UserID, entry.MethodName, entry.Profile, entry.At.UTC().Truncate(time.Second))
	return err
}

// Record implements Recorder by writing synchronously, best-effort.
func (w *Writer) Record(ctx context.Context, entry Entry) {
	if err := w.Write(ctx, entry); err != nil {
		w.logger.Warn("audit write failed", slog.Any("error", err))
	}
}

// HandleRecordTask processes TaskTypeRecord tasks in the worker.
func (w *Writer) HandleRecordTask(ctx context.Context, t *asynq.Task) error {
	var entry Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		return asynq.SkipRetry
	}
	if err := w.Write(ctx, entry); err != nil {
		w.logger.Warn("audit task write failed", slog.Any("error", err))
		return asynq.SkipRetry
	}
	return nil
}

var (
	_ Recorder = (*QueueRecorder)(nil)
	_ Recorder = (*Writer)(nil)
)
