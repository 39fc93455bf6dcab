// Background persistence worker - ack now, write later
package service

import (
	"context"
	"log/slog"

	"github.com/mentiond/mentiond/pkg/utils"
)

// PersistTask is one deferred durable-store write.
type PersistTask struct {
	Name string
	Run  func() error
}

// PersistService decouples the producer-facing request path from storage
// latency: ingestion enqueues a write and responds immediately. The queue is
// bounded; when full the newest task is dropped with a warning, since
// producers re-deliver on their next poll window and the durable store
// absorbs the retry as a duplicate. A failed or panicking task is logged and
// never reaches the request path.
type PersistService struct {
	tasks  chan PersistTask
	logger *slog.Logger
}

const defaultQueueSize = 1024

// NewPersistService creates a worker with the given queue size
// (defaultQueueSize when size <= 0).
func NewPersistService(size int) *PersistService {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &PersistService{
		tasks:  make(chan PersistTask, size),
		logger: utils.GetLogger(),
	}
}

// Start runs the consumer loop until ctx is cancelled.
func (p *PersistService) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-p.tasks:
				p.run(task)
			}
		}
	}()
}

// Enqueue schedules a write without blocking. Returns false when the queue
// is full and the task was dropped.
func (p *PersistService) Enqueue(name string, run func() error) bool {
	select {
	case p.tasks <- PersistTask{Name: name, Run: run}:
		return true
	default:
		p.logger.Warn("persistence queue full, dropping task", "task", name)
		return false
	}
}

// Pending returns the number of queued tasks.
func (p *PersistService) Pending() int {
	return len(p.tasks)
}

func (p *PersistService) run(task PersistTask) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("persistence task panicked", "task", task.Name, "panic", r)
		}
	}()
	if err := task.Run(); err != nil {
		// Graceful degradation: the event already reached the cache and
		// the broadcast stream, it is only absent from durable history.
		p.logger.Warn("persistence task failed", "task", task.Name, "error", err)
	}
}
