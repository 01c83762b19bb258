package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlatforms struct {
	callbackUser string
	callbackCode string
	channel      string
	disconnected []string
	disconnect   error
}

func (s *stubPlatforms) AuthURL(platform, state string) (string, error) {
	if platform == models.PlatformTelegram {
		return "", service.ErrUnsupportedPlatform
	}
	return "https://consent.example.com/" + platform + "?state=" + state, nil
}

func (s *stubPlatforms) Callback(_ context.Context, platform, code, userID string) (*models.IntegrationStatus, error) {
	s.callbackUser, s.callbackCode = userID, code
	return &models.IntegrationStatus{Platform: platform, Connected: true}, nil
}

func (s *stubPlatforms) ConnectTelegram(_ context.Context, _, channelName string) (*models.IntegrationStatus, error) {
	if channelName == "" {
		return nil, service.ValidationError{Platform: models.PlatformTelegram, Reason: "channel name is required"}
	}
	s.channel = channelName
	return &models.IntegrationStatus{Platform: models.PlatformTelegram, Connected: true, ChannelUsername: channelName}, nil
}

func (s *stubPlatforms) Status(_ context.Context, _, platform string) (*models.IntegrationStatus, error) {
	if !models.IsSupportedPlatform(platform) {
		return nil, service.ErrUnsupportedPlatform
	}
	return &models.IntegrationStatus{Platform: platform}, nil
}

func (s *stubPlatforms) List(context.Context, string) ([]*models.IntegrationStatus, error) {
	return []*models.IntegrationStatus{{Platform: models.PlatformLinkedin, Connected: true}}, nil
}

func (s *stubPlatforms) Disconnect(_ context.Context, _, platform string) error {
	if s.disconnect != nil {
		return s.disconnect
	}
	s.disconnected = append(s.disconnected, platform)
	return nil
}

func newPlatformApp(ps service.PlatformService) *fiber.App {
	app := fiber.New()
	api := app.Group("/api", withUser("user-1"))
	Register(app, api, NewPostHandler(testConfig(), nil, nil, nil, nil, nil, nil), NewPlatformHandler(testConfig(), ps))
	return app
}

func TestAuthURL_StateNamesUserAndPlatform(t *testing.T) {
	app := newPlatformApp(&stubPlatforms{})

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/integrations/linkedin/auth-url", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(body["url"].(string))
	require.NoError(t, err)
	claims, err := utils.ValidateToken(testSecret, u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.PlatformLinkedin, claims.Platform)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/integrations/telegram/auth-url", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallback(t *testing.T) {
	ps := &stubPlatforms{}
	app := newPlatformApp(ps)

	state, err := utils.GenerateToken(testSecret, "user-9", models.PlatformYoutube, time.Minute)
	require.NoError(t, err)

	t.Run("redirects to the dashboard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=abc&state="+state, nil)
		resp, _ := do(t, app, req)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://app.example.com/dashboard/integrations", resp.Header.Get("Location"))
		assert.Equal(t, "user-9", ps.callbackUser)
		assert.Equal(t, "abc", ps.callbackCode)
	})

	t.Run("state for another platform", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?code=abc&state="+state, nil)
		resp, _ := do(t, app, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("consent denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?error=access_denied", nil)
		resp, _ := do(t, app, req)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Location"), "error=access_denied")
	})
}

func TestConnectTelegram(t *testing.T) {
	ps := &stubPlatforms{}
	app := newPlatformApp(ps)

	resp, body := postJSON(t, app, "/api/integrations/telegram/connect", map[string]any{"channelName": "@news"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "@news", ps.channel)

	resp, _ = postJSON(t, app, "/api/integrations/telegram/connect", map[string]any{"channelName": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusAndDisconnect(t *testing.T) {
	ps := &stubPlatforms{}
	app := newPlatformApp(ps)

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/integrations/youtube/status", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["connected"])

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/integrations/myspace/status", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, httptest.NewRequest(http.MethodPost, "/api/integrations/linkedin/disconnect", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{models.PlatformLinkedin}, ps.disconnected)

	ps.disconnect = repository.ErrIntegrationNotFound
	resp, _ = do(t, app, httptest.NewRequest(http.MethodPost, "/api/integrations/linkedin/disconnect", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListIntegrations(t *testing.T) {
	app := newPlatformApp(&stubPlatforms{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/integrations", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
