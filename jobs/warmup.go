package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/retailpulse/retailpulse/internal/jobs"
	"github.com/retailpulse/retailpulse/internal/retail"
)

// WarmupJob pre-populates the caches of the parameterless reports so the
// first dashboard hit after an invalidation stays cheap.
type WarmupJob struct {
	Service *retail.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewWarmupJob wires dependencies for the warmup handler.
func NewWarmupJob(service *retail.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle processes warmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.TopCustomers <= 0 {
		payload.TopCustomers = 5
	}

	tracker := j.metrics().Track(TaskRetailWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("job_id", payload.JobID))
	logger.Info("starting report warmup")

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	g, warmCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		_, err := j.Service.TotalsByCategory(warmCtx)
		return err
	})
	g.Go(func() error {
		_, err := j.Service.CountsByGenderCategory(warmCtx)
		return err
	})
	g.Go(func() error {
		_, err := j.Service.BestMonthPerYear(warmCtx)
		return err
	})
	g.Go(func() error {
		_, err := j.Service.TopCustomersBySales(warmCtx, payload.TopCustomers)
		return err
	})
	g.Go(func() error {
		_, err := j.Service.UniqueCustomersPerCategory(warmCtx)
		return err
	})
	g.Go(func() error {
		_, err := j.Service.OrdersByShift(warmCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		resultErr = err
		logger.Error("report warmup", slog.Any("error", err))
		return resultErr
	}

	logger.Info("report warmup done")
	return resultErr
}

func (j *WarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRetailWarmup))
	}
	return slog.Default().With(slog.String("job", TaskRetailWarmup))
}

func (j *WarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
