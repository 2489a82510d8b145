// internal/common/camunda/worker.go
package camunda

import (
	"sync"
	"time"

	"meetup-workers/internal/common/config"
	"meetup-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every worker handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerGroup opens job workers and closes them together on shutdown.
type WorkerGroup struct {
	client zbc.Client
	logger logger.Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerGroup(client zbc.Client, log logger.Logger) *WorkerGroup {
	return &WorkerGroup{client: client, logger: log, workers: map[string]worker.JobWorker{}}
}

// Start opens a job worker for taskType unless it is disabled.
func (g *WorkerGroup) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) {
	if !wcfg.Enabled {
		g.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	jobWorker := g.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	g.mu.Lock()
	g.workers[taskType] = jobWorker
	g.mu.Unlock()

	g.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// TaskTypes lists the running workers.
func (g *WorkerGroup) TaskTypes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.workers))
	for t := range g.workers {
		out = append(out, t)
	}
	return out
}

// Close stops every worker. In-flight jobs finish first.
func (g *WorkerGroup) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for taskType, w := range g.workers {
		w.Close()
		w.AwaitClose()
		g.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	g.workers = map[string]worker.JobWorker{}
}
