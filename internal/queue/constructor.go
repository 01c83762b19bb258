package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueuePublish schedules a publish job to run after delay and returns its
// id. maxAttempts bounds the total number of runs, the first one included.
func EnqueuePublish(ctx context.Context, client Enqueuer, payload PublishPayload, delay time.Duration, maxAttempts int) (string, error) {
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}
	if delay < 0 {
		delay = 0
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)
	_, err = client.EnqueueContext(ctx, task,
		asynq.ProcessIn(delay),
		asynq.MaxRetry(maxAttempts-1),
		asynq.TaskID(payload.JobID),
	)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	slog.Info("publish job scheduled", "job_id", payload.JobID, "user_id", payload.UserID, "delay", delay.String())
	return payload.JobID, nil
}

// RetryDelay returns a fixed backoff for asynq.Config.RetryDelayFunc.
func RetryDelay(d time.Duration) asynq.RetryDelayFunc {
	return func(int, error, *asynq.Task) time.Duration {
		return d
	}
}
