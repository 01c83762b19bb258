package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memIntegrations struct {
	mu      sync.Mutex
	rows    map[string]*models.Integration
	cleared int
	deleted int
}

func newMemIntegrations() *memIntegrations {
	return &memIntegrations{rows: map[string]*models.Integration{}}
}

func key(userID, platform string) string { return userID + "/" + platform }

func (m *memIntegrations) Get(_ context.Context, userID, platform string) (*models.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.rows[key(userID, platform)]
	if !ok {
		return nil, nil
	}
	cp := *in
	return &cp, nil
}

func (m *memIntegrations) Upsert(_ context.Context, in *models.Integration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *in
	if old, ok := m.rows[key(in.UserID, in.Platform)]; ok {
		cp.ID = old.ID
		if cp.RefreshToken == "" {
			cp.RefreshToken = old.RefreshToken
		}
	}
	m.rows[key(in.UserID, in.Platform)] = &cp
	return cp.ID, nil
}

func (m *memIntegrations) SetToken(_ context.Context, userID, platform, access, refresh string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.rows[key(userID, platform)]
	if !ok {
		return repository.ErrIntegrationNotFound
	}
	in.AccessToken = access
	if refresh != "" {
		in.RefreshToken = refresh
	}
	in.ExpiresAt = expiresAt
	return nil
}

func (m *memIntegrations) ClearRefreshToken(_ context.Context, userID, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.rows[key(userID, platform)]
	if !ok {
		return repository.ErrIntegrationNotFound
	}
	in.RefreshToken = ""
	m.cleared++
	return nil
}

func (m *memIntegrations) ListByUserID(_ context.Context, userID string) ([]*models.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Integration
	for _, in := range m.rows {
		if in.UserID == userID {
			cp := *in
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memIntegrations) ListExpiring(_ context.Context, before time.Time) ([]*models.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Integration
	for _, in := range m.rows {
		if !in.ExpiresAt.IsZero() && in.ExpiresAt.Before(before) && in.RefreshToken != "" {
			cp := *in
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memIntegrations) Delete(_ context.Context, userID, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key(userID, platform))
	m.deleted++
	return nil
}

// store seals in and saves it the way the connect flow does.
func (m *memIntegrations) store(t *testing.T, in models.Integration) {
	t.Helper()
	sealed, err := sealIntegration(&in, testSecret)
	require.NoError(t, err)
	_, err = m.Upsert(context.Background(), sealed)
	require.NoError(t, err)
}

func (m *memIntegrations) plain(t *testing.T, userID, platform string) *models.Integration {
	t.Helper()
	stored, err := m.Get(context.Background(), userID, platform)
	require.NoError(t, err)
	if stored == nil {
		return nil
	}
	in, err := openIntegration(stored, testSecret)
	require.NoError(t, err)
	return in
}

// staticCreds resolves every platform to a fixed integration.
type staticCreds struct {
	in  *models.Integration
	err error
}

func (c staticCreds) Resolve(_ context.Context, _, platform string) (*models.Integration, error) {
	if c.err != nil {
		return nil, c.err
	}
	cp := *c.in
	cp.Platform = platform
	return &cp, nil
}

func (c staticCreds) Refresh(context.Context, *models.Integration) error { return c.err }
