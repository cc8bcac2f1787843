package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/retailpulse/retailpulse/internal/jobs"
	"github.com/retailpulse/retailpulse/internal/retail"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CleanseJob runs the cleansing pass over the sales table.
type CleanseJob struct {
	Service *retail.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCleanseJob wires dependencies for the cleanse handler.
func NewCleanseJob(service *retail.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *CleanseJob {
	return &CleanseJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle processes cleanse tasks.
func (j *CleanseJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("cleanse: handler not configured")
	}
	var payload CleansePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskRetailCleanse)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("job_id", payload.JobID))
	logger.Info("starting cleanse")

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	summary, err := j.Service.Clean(runCtx)
	if err != nil {
		resultErr = err
		logger.Error("cleanse", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddCleansed("deleted", summary.Deleted)
	j.metrics().AddCleansed("normalized", int64(summary.Normalized))
	logger.Info("cleanse done",
		slog.Int64("deleted", summary.Deleted),
		slog.Int("normalized", summary.Normalized))
	return resultErr
}

func (j *CleanseJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRetailCleanse))
	}
	return slog.Default().With(slog.String("job", TaskRetailCleanse))
}

func (j *CleanseJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
