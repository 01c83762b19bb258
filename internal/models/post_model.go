package models

import "time"

// FileAttachment is a raw payload to attach to a post. Adapters treat it as
// read-only. Data is base64 encoded in JSON.
type FileAttachment struct {
	Data     []byte `json:"data,omitempty"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url,omitempty"`
}

// PostContent is the platform-agnostic post.
type PostContent struct {
	Text       string           `json:"text"`
	Title      string           `json:"title,omitempty"`
	Images     []FileAttachment `json:"images,omitempty"`
	Videos     []FileAttachment `json:"videos,omitempty"`
	OtherFiles []FileAttachment `json:"otherFiles,omitempty"`
}

func (c *PostContent) AttachmentCount() int {
	return len(c.Images) + len(c.Videos) + len(c.OtherFiles)
}

func (c *PostContent) HasAttachments() bool {
	return c.AttachmentCount() > 0
}

// IsEmpty reports whether the post has neither text nor any attachment.
func (c *PostContent) IsEmpty() bool {
	return c == nil || (c.Text == "" && !c.HasAttachments())
}

type ErrorKind string

const (
	ErrorKindNotConnected           ErrorKind = "not_connected"
	ErrorKindTransient              ErrorKind = "transient_network_failure"
	ErrorKindPlatformRejected       ErrorKind = "platform_rejected"
	ErrorKindPartialProtocolFailure ErrorKind = "partial_protocol_failure"
	ErrorKindValidation             ErrorKind = "validation_failure"
)

// PostResponse is the normalized outcome of one adapter call. A success
// carries PostID, a failure carries Error; never both.
type PostResponse struct {
	Success bool      `json:"success"`
	PostID  string    `json:"postId,omitempty"`
	PostURL string    `json:"postUrl,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Details any       `json:"details,omitempty"`
}

func Succeeded(postID, postURL string) PostResponse {
	return PostResponse{Success: true, PostID: postID, PostURL: postURL}
}

func Failed(kind ErrorKind, message string, details any) PostResponse {
	if message == "" {
		message = "request failed"
	}
	return PostResponse{Success: false, Error: message, Kind: kind, Details: details}
}

type PublishStatus string

const (
	StatusAllSuccess     PublishStatus = "all-success"
	StatusPartialSuccess PublishStatus = "partial-success"
	StatusAllFailed      PublishStatus = "all-failed"
)

type PlatformError struct {
	Platform string    `json:"platform"`
	Error    string    `json:"error"`
	Kind     ErrorKind `json:"kind,omitempty"`
}

// AggregateResult collects every platform outcome of one publish call.
type AggregateResult struct {
	Status  PublishStatus           `json:"status"`
	Results map[string]PostResponse `json:"results"`
	Errors  []PlatformError         `json:"errors,omitempty"`
}

// NewAggregateResult derives the overall status and error list from the
// per-platform results. platforms fixes the order of Errors.
func NewAggregateResult(platforms []string, results map[string]PostResponse) *AggregateResult {
	agg := &AggregateResult{Results: results}

	succeeded := 0
	for _, p := range platforms {
		res, ok := results[p]
		if !ok {
			continue
		}
		if res.Success {
			succeeded++
			continue
		}
		agg.Errors = append(agg.Errors, PlatformError{Platform: p, Error: res.Error, Kind: res.Kind})
	}

	switch {
	case len(results) == 0:
		agg.Status = StatusAllFailed
	case succeeded == len(results):
		agg.Status = StatusAllSuccess
	case succeeded == 0:
		agg.Status = StatusAllFailed
	default:
		agg.Status = StatusPartialSuccess
	}
	return agg
}

// StatusCode maps the overall status onto the HTTP boundary.
func (a *AggregateResult) StatusCode() int {
	switch a.Status {
	case StatusAllSuccess:
		return 200
	case StatusPartialSuccess:
		return 207
	default:
		return 500
	}
}

// Post is a saved draft. Content is markdown: the body followed by one image
// link per attached image URL.
type Post struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
