// Package jobs wires the background task queue: the nightly cleanse pass and
// the report cache warmup.
package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRetailCleanse is the task type for the cleansing pass.
	TaskRetailCleanse = "retail:cleanse"
	// TaskRetailWarmup is the task type for pre-populating report caches.
	TaskRetailWarmup = "retail:warmup"
)

// CleansePayload describes one cleanse run.
type CleansePayload struct {
	JobID string `json:"job_id"`
}

// WarmupPayload describes one cache warmup run.
type WarmupPayload struct {
	JobID        string `json:"job_id"`
	TopCustomers int    `json:"top_customers"`
}

// NewCleanseTask constructs an Asynq task for the cleansing pass.
func NewCleanseTask() (*asynq.Task, error) {
	data, err := json.Marshal(CleansePayload{JobID: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetailCleanse, data), nil
}

// NewWarmupTask constructs an Asynq task for the cache warmup.
func NewWarmupTask(topCustomers int) (*asynq.Task, error) {
	data, err := json.Marshal(WarmupPayload{JobID: uuid.NewString(), TopCustomers: topCustomers})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetailWarmup, data), nil
}
