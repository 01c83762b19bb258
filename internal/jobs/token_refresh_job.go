package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/robfig/cron"
)

const (
	RefreshSchedule = "@every 10m"
	refreshWindow   = 30 * time.Minute
	refreshLimit    = 10
)

// TokenRefreshJob renews access tokens before they expire so publishes do
// not pay for the refresh round trip.
type TokenRefreshJob struct {
	ir    repository.IntegrationRepository
	creds service.CredentialService
	now   func() time.Time
}

func NewTokenRefreshJob(ir repository.IntegrationRepository, creds service.CredentialService) *TokenRefreshJob {
	return &TokenRefreshJob{
		ir:    ir,
		creds: creds,
		now:   time.Now,
	}
}

// Schedule registers the job on c.
func (j *TokenRefreshJob) Schedule(c *cron.Cron) error {
	return c.AddFunc(RefreshSchedule, func() {
		j.RefreshTokens(context.Background())
	})
}

// RefreshTokens returns the number of integrations renewed.
func (j *TokenRefreshJob) RefreshTokens(ctx context.Context) int {
	integrations, err := j.ir.ListExpiring(ctx, j.now().Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)
	semaphore := make(chan struct{}, refreshLimit)

	for _, in := range integrations {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(in *models.Integration) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.creds.Refresh(ctx, in); err != nil {
				slog.Info("unable to refresh token", "platform", in.Platform, "user_id", in.UserID, "error", err)
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(in)
	}
	wg.Wait()

	if len(integrations) > 0 {
		slog.Info("token refresh finished", "candidates", len(integrations), "refreshed", refreshed)
	}
	return refreshed
}
