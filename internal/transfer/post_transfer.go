package transfer

import "github.com/maheshrc27/crosspost/internal/models"

// PublishRequest is the JSON body accepted by the publish and schedule routes.
type PublishRequest struct {
	models.PostContent
	Platforms     []string `json:"platforms,omitempty"`
	DelaySeconds  *int     `json:"delay_seconds,omitempty"`
	ScheduledTime string   `json:"scheduled_time,omitempty"`
}

type TelegramConnectRequest struct {
	ChannelName string `json:"channelName"`
}

type ImageUploadResponse struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

type ScheduleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// CreatePostRequest saves a draft. Images are URLs, typically returned by
// the upload-image route.
type CreatePostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type CreatePostResponse struct {
	Success bool         `json:"success"`
	Post    *models.Post `json:"post"`
}

type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type PostSearch struct {
	Term         string `json:"term"`
	ResultsCount int    `json:"resultsCount"`
}

type PostListResponse struct {
	Posts      []*models.Post `json:"posts"`
	Pagination Pagination     `json:"pagination"`
	Search     *PostSearch    `json:"search"`
}
