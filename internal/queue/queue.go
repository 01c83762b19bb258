package queue

import (
	"net/http"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
)

// Queue runs deferred publish jobs.
type Queue struct {
	ps     service.PublishService
	client *http.Client
}

func NewQueue(ps service.PublishService, client *http.Client) *Queue {
	return &Queue{
		ps:     ps,
		client: client,
	}
}

const TaskTypePublishPost = "publish:post"

// PublishPayload is the job body. Attachments normally carry URLs instead of
// bytes so the payload stays small.
type PublishPayload struct {
	JobID     string             `json:"job_id"`
	UserID    string             `json:"user_id"`
	Content   models.PostContent `json:"content"`
	Platforms []string           `json:"platforms,omitempty"`
}
