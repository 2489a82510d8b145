// internal/workers/ai-conversation/explain-recommendations/handler.go
package explainrecommendations

import (
	"context"
	"encoding/json"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"
	"meetup-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "explain-recommendations"
)

type Handler struct {
	config     *Config
	explainer  *Explainer
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, llm TextCompleter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		explainer:  NewExplainer(llm, config, log),
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, apperrors.NewParseError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Recommendations) == 0 {
		return &Output{Recommendations: []models.RankedRecommendation{}}, nil
	}
	seen := make(map[string]bool, len(input.Members))
	for _, m := range input.Members {
		if m.ID == "" {
			return nil, apperrors.NewInvalidInputError("member id is required")
		}
		if seen[m.ID] {
			return nil, apperrors.NewInvalidInputError("duplicate member id " + m.ID)
		}
		seen[m.ID] = true
	}

	recs, failures := h.explainer.Explain(ctx, input.Recommendations, input.Members, input.Intent)

	h.logger.Info("recommendations explained", map[string]interface{}{
		"recommendations": len(recs),
		"members":         len(input.Members),
		"partialFailures": len(failures),
	})
	return &Output{Recommendations: recs, PartialFailures: failures}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
