package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

// PostQuery selects one page of a user's posts. An empty Search matches
// every post.
type PostQuery struct {
	Search string
	Limit  int
	Offset int
}

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	// ListByUserID returns the requested page, newest first, and the number
	// of posts matching the query across all pages.
	ListByUserID(ctx context.Context, userID string, q PostQuery) ([]*models.Post, int, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, title, content, scheduled_at, created_at, updated_at`

// postMatch is shared by the page and count queries. $1 is the user, $2 the
// search term.
const postMatch = `user_id = $1 AND ($2::text = '' OR content_tsv @@ plainto_tsquery('simple', $2::text))`

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var scheduledAt sql.NullTime
	if err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &scheduledAt, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		post.ScheduledAt = scheduledAt.Time
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (id, user_id, title, content, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + postColumns

	created, err := scanPost(r.db.QueryRowContext(ctx, query,
		post.ID, post.UserID, post.Title, post.Content, nullTime(post.ScheduledAt),
	))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return created, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID string, q PostQuery) ([]*models.Post, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM posts WHERE `+postMatch, userID, q.Search).Scan(&total)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + postMatch + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, userID, q.Search, q.Limit, q.Offset)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]*models.Post, 0, q.Limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	return posts, total, nil
}
