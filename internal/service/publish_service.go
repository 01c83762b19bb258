package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

// Adapter publishes to one platform. Implementations never return Go errors:
// every failure is reported through the PostResponse.
type Adapter interface {
	Platform() string
	CreatePost(ctx context.Context, userID string, content *models.PostContent) models.PostResponse
	EditPost(ctx context.Context, userID, postID string, content *models.PostContent) models.PostResponse
	DeletePost(ctx context.Context, userID, postID string) models.PostResponse
}

type PublishService interface {
	// PublishAll fans content out to every registered adapter, or to the
	// given subset, and waits for all of them to settle.
	PublishAll(ctx context.Context, userID, jobID string, content *models.PostContent, platforms ...string) (*models.AggregateResult, error)
	EditPost(ctx context.Context, userID, platform, postID string, content *models.PostContent) (models.PostResponse, error)
	DeletePost(ctx context.Context, userID, platform, postID string) (models.PostResponse, error)
	Platforms() []string
}

type publishService struct {
	adapters map[string]Adapter
	order    []string
	ph       repository.PublishHistoryRepository
}

// NewPublishService registers adapters for the closed platform set. ph may be
// nil, in which case outcomes are not recorded.
func NewPublishService(ph repository.PublishHistoryRepository, adapters ...Adapter) (PublishService, error) {
	s := &publishService{adapters: make(map[string]Adapter, len(adapters)), ph: ph}
	for _, a := range adapters {
		p := a.Platform()
		if !models.IsSupportedPlatform(p) {
			return nil, fmt.Errorf("unsupported platform %q", p)
		}
		if _, dup := s.adapters[p]; dup {
			return nil, fmt.Errorf("platform %q registered twice", p)
		}
		s.adapters[p] = a
		s.order = append(s.order, p)
	}
	sort.Strings(s.order)
	return s, nil
}

func (s *publishService) Platforms() []string {
	return append([]string(nil), s.order...)
}

func (s *publishService) targets(platforms []string) ([]string, error) {
	if len(platforms) == 0 {
		return s.Platforms(), nil
	}
	seen := make(map[string]bool, len(platforms))
	var out []string
	for _, p := range platforms {
		if _, ok := s.adapters[p]; !ok {
			return nil, ValidationError{Reason: fmt.Sprintf("platform %q is not available", p)}
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *publishService) PublishAll(ctx context.Context, userID, jobID string, content *models.PostContent, platforms ...string) (*models.AggregateResult, error) {
	if content.IsEmpty() {
		return nil, ValidationError{Reason: "post must have text or at least one attachment"}
	}
	targets, err := s.targets(platforms)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ValidationError{Reason: "no platforms registered"}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]models.PostResponse, len(targets))
	)

	for _, p := range targets {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			res := invoke(a.Platform(), func() models.PostResponse {
				return a.CreatePost(ctx, userID, content)
			})
			mu.Lock()
			results[a.Platform()] = res
			mu.Unlock()
		}(s.adapters[p])
	}
	wg.Wait()

	agg := models.NewAggregateResult(targets, results)
	s.record(ctx, userID, jobID, targets, results)

	slog.Info("publish settled", "user_id", userID, "job_id", jobID, "status", string(agg.Status), "platforms", len(targets))
	return agg, nil
}

func (s *publishService) EditPost(ctx context.Context, userID, platform, postID string, content *models.PostContent) (models.PostResponse, error) {
	a, ok := s.adapters[platform]
	if !ok {
		return models.PostResponse{}, ValidationError{Reason: fmt.Sprintf("platform %q is not available", platform)}
	}
	if postID == "" {
		return models.PostResponse{}, ValidationError{Platform: platform, Reason: "post id is required"}
	}
	if content.IsEmpty() {
		return models.PostResponse{}, ValidationError{Platform: platform, Reason: "post must have text or at least one attachment"}
	}
	return invoke(platform, func() models.PostResponse {
		return a.EditPost(ctx, userID, postID, content)
	}), nil
}

func (s *publishService) DeletePost(ctx context.Context, userID, platform, postID string) (models.PostResponse, error) {
	a, ok := s.adapters[platform]
	if !ok {
		return models.PostResponse{}, ValidationError{Reason: fmt.Sprintf("platform %q is not available", platform)}
	}
	if postID == "" {
		return models.PostResponse{}, ValidationError{Platform: platform, Reason: "post id is required"}
	}
	return invoke(platform, func() models.PostResponse {
		return a.DeletePost(ctx, userID, postID)
	}), nil
}

// invoke converts an adapter panic into that platform's failure.
func invoke(platform string, call func() models.PostResponse) (res models.PostResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("adapter panicked", "platform", platform, "panic", r)
			res = models.Failed(models.ErrorKindTransient, fmt.Sprintf("%s adapter failed unexpectedly: %v", platform, r), nil)
		}
	}()
	return call()
}

func (s *publishService) record(ctx context.Context, userID, jobID string, platforms []string, results map[string]models.PostResponse) {
	if s.ph == nil {
		return
	}
	for _, p := range platforms {
		res := results[p]
		entry := &models.PublishHistory{
			UserID:       userID,
			JobID:        jobID,
			Platform:     p,
			Success:      res.Success,
			PostID:       res.PostID,
			PostURL:      res.PostURL,
			ErrorMessage: res.Error,
		}
		if _, err := s.ph.Create(ctx, entry); err != nil {
			slog.Error("failed to record publish history", "platform", p, "user_id", userID, "error", err)
		}
	}
}
