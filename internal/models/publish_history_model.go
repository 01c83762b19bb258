package models

import "time"

type PublishHistory struct {
	ID           int64     `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	JobID        string    `db:"job_id" json:"job_id,omitempty"`
	Platform     string    `db:"platform" json:"platform"`
	Success      bool      `db:"success" json:"success"`
	PostID       string    `db:"post_id" json:"post_id,omitempty"`
	PostURL      string    `db:"post_url" json:"post_url,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
