package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type PublishHistoryRepository interface {
	Create(ctx context.Context, ph *models.PublishHistory) (int64, error)
	GetByUserID(ctx context.Context, userID string, limit int) ([]*models.PublishHistory, error)
}

type publishHistoryRepository struct {
	db *sql.DB
}

func NewPublishHistoryRepository(db *sql.DB) PublishHistoryRepository {
	return &publishHistoryRepository{db: db}
}

func (r *publishHistoryRepository) Create(ctx context.Context, ph *models.PublishHistory) (int64, error) {
	query := `
		INSERT INTO publish_history (user_id, job_id, platform, success, post_id, post_url, error_message)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		ph.UserID, ph.JobID, ph.Platform, ph.Success, ph.PostID, ph.PostURL, ph.ErrorMessage,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishHistoryRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*models.PublishHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, job_id, platform, success, post_id, post_url, error_message, created_at
		FROM publish_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	phs := make([]*models.PublishHistory, 0)
	for rows.Next() {
		var ph models.PublishHistory
		var jobID, postID, postURL, errorMessage sql.NullString
		err := rows.Scan(&ph.ID, &ph.UserID, &jobID, &ph.Platform, &ph.Success, &postID, &postURL, &errorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ph.JobID = jobID.String
		ph.PostID = postID.String
		ph.PostURL = postURL.String
		ph.ErrorMessage = errorMessage.String
		phs = append(phs, &ph)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return phs, nil
}
