package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (c *captureEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.task = task
	c.opts = opts
	if c.err != nil {
		return nil, c.err
	}
	return &asynq.TaskInfo{ID: "x"}, nil
}

func optionValues(opts []asynq.Option) map[asynq.OptionType]any {
	out := map[asynq.OptionType]any{}
	for _, o := range opts {
		out[o.Type()] = o.Value()
	}
	return out
}

func TestEnqueuePublish(t *testing.T) {
	enq := &captureEnqueuer{}
	payload := PublishPayload{UserID: "u1", Content: models.PostContent{Text: "later"}}

	jobID, err := EnqueuePublish(context.Background(), enq, payload, 90*time.Second, 3)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.NotNil(t, enq.task)
	assert.Equal(t, TaskTypePublishPost, enq.task.Type())

	var decoded PublishPayload
	require.NoError(t, json.Unmarshal(enq.task.Payload(), &decoded))
	assert.Equal(t, jobID, decoded.JobID)
	assert.Equal(t, "later", decoded.Content.Text)

	values := optionValues(enq.opts)
	assert.Equal(t, 90*time.Second, values[asynq.ProcessInOpt])
	assert.Equal(t, 2, values[asynq.MaxRetryOpt])
	assert.Equal(t, jobID, values[asynq.TaskIDOpt])
}

func TestEnqueuePublish_Error(t *testing.T) {
	_, err := EnqueuePublish(context.Background(), &captureEnqueuer{err: errors.New("redis down")}, PublishPayload{UserID: "u1"}, 0, 3)
	assert.Error(t, err)
}

func TestRetryDelayIsFixed(t *testing.T) {
	fn := RetryDelay(time.Second)
	assert.Equal(t, time.Second, fn(1, errors.New("x"), nil))
	assert.Equal(t, time.Second, fn(5, errors.New("x"), nil))
}

type fakePublisher struct {
	calls   int
	content *models.PostContent
	jobID   string
	agg     *models.AggregateResult
	err     error
}

func (f *fakePublisher) PublishAll(_ context.Context, _, jobID string, content *models.PostContent, _ ...string) (*models.AggregateResult, error) {
	f.calls++
	f.content = content
	f.jobID = jobID
	if content.IsEmpty() {
		return nil, service.ValidationError{Reason: "empty"}
	}
	return f.agg, f.err
}

func (f *fakePublisher) EditPost(context.Context, string, string, string, *models.PostContent) (models.PostResponse, error) {
	return models.PostResponse{}, nil
}

func (f *fakePublisher) DeletePost(context.Context, string, string, string) (models.PostResponse, error) {
	return models.PostResponse{}, nil
}

func (f *fakePublisher) Platforms() []string { return models.Platforms }

func task(t *testing.T, p PublishPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(TaskTypePublishPost, raw)
}

func TestHandlePublishTask(t *testing.T) {
	failed := models.NewAggregateResult([]string{models.PlatformLinkedin}, map[string]models.PostResponse{
		models.PlatformLinkedin: models.Failed(models.ErrorKindPlatformRejected, "no", nil),
	})

	t.Run("platform failures are not retried", func(t *testing.T) {
		ps := &fakePublisher{agg: failed}
		err := NewQueue(ps, http.DefaultClient).HandlePublishTask(context.Background(), task(t, PublishPayload{JobID: "j1", UserID: "u1", Content: models.PostContent{Text: "hi"}}))
		assert.NoError(t, err)
		assert.Equal(t, 1, ps.calls)
		assert.Equal(t, "j1", ps.jobID)
	})

	t.Run("job errors are retried", func(t *testing.T) {
		ps := &fakePublisher{err: errors.New("unexpected")}
		err := NewQueue(ps, http.DefaultClient).HandlePublishTask(context.Background(), task(t, PublishPayload{UserID: "u1", Content: models.PostContent{Text: "hi"}}))
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("bad payload skips retry", func(t *testing.T) {
		ps := &fakePublisher{}
		err := NewQueue(ps, http.DefaultClient).HandlePublishTask(context.Background(), asynq.NewTask(TaskTypePublishPost, []byte("{not json")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.Zero(t, ps.calls)
	})

	t.Run("validation failure skips retry", func(t *testing.T) {
		ps := &fakePublisher{}
		err := NewQueue(ps, http.DefaultClient).HandlePublishTask(context.Background(), task(t, PublishPayload{UserID: "u1"}))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("hydrates url attachments", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("image-bytes"))
		}))
		defer srv.Close()

		ps := &fakePublisher{agg: failed}
		err := NewQueue(ps, srv.Client()).HandlePublishTask(context.Background(), task(t, PublishPayload{
			UserID:  "u1",
			Content: models.PostContent{Text: "hi", Images: []models.FileAttachment{{URL: srv.URL + "/a.png", MimeType: "image/png"}}},
		}))
		require.NoError(t, err)
		assert.Equal(t, []byte("image-bytes"), ps.content.Images[0].Data)
	})

	t.Run("download failure is retried", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		ps := &fakePublisher{}
		err := NewQueue(ps, srv.Client()).HandlePublishTask(context.Background(), task(t, PublishPayload{
			UserID:  "u1",
			Content: models.PostContent{Text: "hi", Images: []models.FileAttachment{{URL: srv.URL + "/a.png"}}},
		}))
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
		assert.Zero(t, ps.calls)
	})

	t.Run("oversized attachment skips retry", func(t *testing.T) {
		limit := service.MaxAttachmentSize
		service.MaxAttachmentSize = 8
		defer func() { service.MaxAttachmentSize = limit }()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("more than eight bytes"))
		}))
		defer srv.Close()

		ps := &fakePublisher{}
		err := NewQueue(ps, srv.Client()).HandlePublishTask(context.Background(), task(t, PublishPayload{
			UserID:  "u1",
			Content: models.PostContent{Text: "hi", Videos: []models.FileAttachment{{URL: srv.URL + "/v.mp4"}}},
		}))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.ErrorIs(t, err, service.ErrAttachmentTooLarge)
		assert.Zero(t, ps.calls)
	})
}
