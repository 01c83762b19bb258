package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PostService stores drafts and lists them back page by page.
type PostService interface {
	Create(ctx context.Context, userID string, req *transfer.CreatePostRequest) (*models.Post, error)
	List(ctx context.Context, userID string, page, limit int, search string) (*transfer.PostListResponse, error)
}

type postService struct {
	pr repository.PostRepository
}

func NewPostService(pr repository.PostRepository) PostService {
	return &postService{pr: pr}
}

func (s *postService) Create(ctx context.Context, userID string, req *transfer.CreatePostRequest) (*models.Post, error) {
	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Content)
	if title == "" || body == "" {
		return nil, ValidationError{Reason: "title and content are required"}
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.Create(ctx, &models.Post{
		ID:      id,
		UserID:  userID,
		Title:   title,
		Content: draftContent(body, req.Images),
	})
	if err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}
	return post, nil
}

func draftContent(body string, images []string) string {
	var b strings.Builder
	b.WriteString(body)
	for _, url := range images {
		if url = strings.TrimSpace(url); url == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n![Image](%s)", url)
	}
	return b.String()
}

func (s *postService) List(ctx context.Context, userID string, page, limit int, search string) (*transfer.PostListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	search = strings.TrimSpace(search)

	posts, total, err := s.pr.ListByUserID(ctx, userID, repository.PostQuery{
		Search: search,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	res := &transfer.PostListResponse{
		Posts: posts,
		Pagination: transfer.Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
		},
	}
	if search != "" {
		res.Search = &transfer.PostSearch{Term: search, ResultsCount: len(posts)}
	}
	return res, nil
}
