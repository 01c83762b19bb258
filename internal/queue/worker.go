package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/service"
)

func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishTask)
	return mux
}

// HandlePublishTask runs the coordinator once. Per-platform failures are
// final for the attempt; only errors of the job itself are retried.
func (q *Queue) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("decode publish payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == "" {
		return fmt.Errorf("publish payload has no user: %w", asynq.SkipRetry)
	}

	content, err := service.HydrateAttachments(ctx, q.client, &payload.Content)
	if err != nil {
		slog.Info(err.Error())
		if errors.Is(err, service.ErrAttachmentTooLarge) {
			return fmt.Errorf("fetch attachments: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("fetch attachments: %w", err)
	}

	agg, err := q.ps.PublishAll(ctx, payload.UserID, payload.JobID, content, payload.Platforms...)
	if err != nil {
		var ve service.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	for _, e := range agg.Errors {
		slog.Warn("platform publish failed", "job_id", payload.JobID, "platform", e.Platform, "kind", string(e.Kind), "error", e.Error)
	}
	slog.Info("publish job finished", "job_id", payload.JobID, "status", string(agg.Status))
	return nil
}
