package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

var ErrUnsupportedPlatform = errors.New("unsupported platform")

// PlatformService connects, inspects and disconnects integrations.
type PlatformService interface {
	AuthURL(platform, state string) (string, error)
	Callback(ctx context.Context, platform, code, userID string) (*models.IntegrationStatus, error)
	ConnectTelegram(ctx context.Context, userID, channelName string) (*models.IntegrationStatus, error)
	Status(ctx context.Context, userID, platform string) (*models.IntegrationStatus, error)
	List(ctx context.Context, userID string) ([]*models.IntegrationStatus, error)
	Disconnect(ctx context.Context, userID, platform string) error
}

type platformService struct {
	cfg       *config.Config
	ir        repository.IntegrationRepository
	creds     CredentialService
	bot       *telegramBot
	client    *http.Client
	oauth     map[string]*oauth2.Config
	revokeURL string
	now       func() time.Time
}

func NewPlatformService(cfg *config.Config, ir repository.IntegrationRepository, creds CredentialService, client *http.Client) PlatformService {
	return &platformService{
		cfg:    cfg,
		ir:     ir,
		creds:  creds,
		bot:    newTelegramBot(cfg.Telegram, client),
		client: client,
		oauth: map[string]*oauth2.Config{
			models.PlatformLinkedin: LinkedinOAuthConfig(cfg),
			models.PlatformYoutube:  GoogleOAuthConfig(cfg),
		},
		revokeURL: googleRevokeURL,
		now:       time.Now,
	}
}

func (s *platformService) oauthConfig(platform string) (*oauth2.Config, error) {
	conf, ok := s.oauth[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no oauth flow", ErrUnsupportedPlatform, platform)
	}
	if conf.ClientID == "" || conf.ClientSecret == "" || conf.RedirectURL == "" {
		err := fmt.Errorf("%s oauth2 configuration is incomplete", platform)
		slog.Info(err.Error())
		return nil, err
	}
	return conf, nil
}

func (s *platformService) AuthURL(platform, state string) (string, error) {
	conf, err := s.oauthConfig(platform)
	if err != nil {
		return "", err
	}
	if platform == models.PlatformYoutube {
		return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
	}
	return conf.AuthCodeURL(state), nil
}

func (s *platformService) Callback(ctx context.Context, platform, code, userID string) (*models.IntegrationStatus, error) {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return nil, ValidationError{Platform: platform, Reason: err.Error()}
	}
	conf, err := s.oauthConfig(platform)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("exchange %s code: %w", platform, err)
	}

	in := &models.Integration{
		UserID:       userID,
		Platform:     platform,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	switch platform {
	case models.PlatformLinkedin:
		info, err := s.linkedinUserInfo(ctx, token.AccessToken)
		if err != nil {
			return nil, err
		}
		in.ProfileID = info.Sub
	case models.PlatformYoutube:
		channel, err := s.youtubeChannel(ctx, conf, token)
		if err != nil {
			return nil, err
		}
		in.ChannelID = channel.Id
		if channel.Snippet != nil {
			in.ChannelTitle = channel.Snippet.Title
		}
	}

	if err := s.save(ctx, in); err != nil {
		return nil, err
	}
	return statusOf(in), nil
}

func (s *platformService) linkedinUserInfo(ctx context.Context, accessToken string) (*transfer.LinkedinUserInfo, error) {
	var info transfer.LinkedinUserInfo
	_, err := doJSON(ctx, s.client, models.PlatformLinkedin, apiRequest{
		Method:  http.MethodGet,
		URL:     strings.TrimRight(s.cfg.Linkedin.APIURL, "/") + "/v2/userinfo",
		Headers: map[string]string{"Authorization": "Bearer " + accessToken},
	}, linkedinMessage, &info)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if info.Sub == "" {
		return nil, errors.New("linkedin userinfo returned no subject")
	}
	return &info, nil
}

func (s *platformService) youtubeChannel(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*youtube.Channel, error) {
	svc, err := youtube.NewService(ctx,
		option.WithHTTPClient(conf.Client(ctx, token)),
		option.WithEndpoint(strings.TrimRight(s.cfg.Google.YoutubeURL, "/")+"/"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	resp, err := svc.Channels.List([]string{"id", "snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("list youtube channels: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, errors.New("no youtube channel found for this account")
	}
	return resp.Items[0], nil
}

// normalizeChannel accepts "name", "@name", a t.me link or a numeric chat id.
func normalizeChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimPrefix(channel, "https://t.me/")
	channel = strings.TrimPrefix(channel, "t.me/")
	if channel == "" {
		return ""
	}
	if _, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return channel
	}
	return "@" + strings.TrimPrefix(channel, "@")
}

func (s *platformService) ConnectTelegram(ctx context.Context, userID, channelName string) (*models.IntegrationStatus, error) {
	channel := normalizeChannel(channelName)
	if channel == "" {
		return nil, ValidationError{Platform: models.PlatformTelegram, Reason: "channel name is required"}
	}

	if _, err := s.bot.GetChatMemberCount(ctx, channel); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("bot cannot access %s: %w", channel, err)
	}
	me, err := s.bot.GetMe(ctx)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	in := &models.Integration{
		UserID:          userID,
		Platform:        models.PlatformTelegram,
		BotChatID:       strconv.FormatInt(me.ID, 10),
		ChannelUsername: channel,
	}
	if err := s.save(ctx, in); err != nil {
		return nil, err
	}
	return statusOf(in), nil
}

func (s *platformService) save(ctx context.Context, in *models.Integration) error {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	in.ID = id

	sealed, err := sealIntegration(in, s.cfg.SecretKey)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if _, err := s.ir.Upsert(ctx, sealed); err != nil {
		return fmt.Errorf("save %s integration: %w", in.Platform, err)
	}
	return nil
}

// Status reports whether the user has a usable integration. An expired
// integration that cannot be renewed is removed.
func (s *platformService) Status(ctx context.Context, userID, platform string) (*models.IntegrationStatus, error) {
	if !models.IsSupportedPlatform(platform) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	in, err := s.ir.Get(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return &models.IntegrationStatus{Platform: platform}, nil
	}
	return s.check(ctx, in), nil
}

func (s *platformService) List(ctx context.Context, userID string) ([]*models.IntegrationStatus, error) {
	stored, err := s.ir.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	byPlatform := make(map[string]*models.Integration, len(stored))
	for _, in := range stored {
		byPlatform[in.Platform] = in
	}

	statuses := make([]*models.IntegrationStatus, 0, len(models.Platforms))
	for _, p := range models.Platforms {
		in, ok := byPlatform[p]
		if !ok {
			statuses = append(statuses, &models.IntegrationStatus{Platform: p})
			continue
		}
		statuses = append(statuses, s.check(ctx, in))
	}
	return statuses, nil
}

func (s *platformService) check(ctx context.Context, in *models.Integration) *models.IntegrationStatus {
	if !in.Expired(s.now()) {
		return statusOf(in)
	}

	err := s.creds.Refresh(ctx, in)
	if err == nil {
		return statusOf(in)
	}
	if !errors.Is(err, ErrNotConnected) {
		slog.Error("could not renew integration", "platform", in.Platform, "user_id", in.UserID, "error", err)
		return statusOf(in)
	}

	if err := s.ir.Delete(ctx, in.UserID, in.Platform); err != nil {
		slog.Error("failed to remove expired integration", "platform", in.Platform, "user_id", in.UserID, "error", err)
	}
	return &models.IntegrationStatus{Platform: in.Platform}
}

func (s *platformService) Disconnect(ctx context.Context, userID, platform string) error {
	if !models.IsSupportedPlatform(platform) {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	stored, err := s.ir.Get(ctx, userID, platform)
	if err != nil {
		return err
	}
	if stored == nil {
		return repository.ErrIntegrationNotFound
	}

	if platform == models.PlatformYoutube {
		in, err := openIntegration(stored, s.cfg.SecretKey)
		if err == nil {
			err = s.revokeGoogleAccess(ctx, in.AccessToken)
		}
		if err != nil {
			slog.Warn("google token revocation failed", "user_id", userID, "error", err)
		}
	}

	return s.ir.Delete(ctx, userID, platform)
}

func (s *platformService) revokeGoogleAccess(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	_, _, err := doRequest(ctx, s.client, models.PlatformYoutube, apiRequest{
		Method:      http.MethodPost,
		URL:         s.revokeURL,
		Body:        strings.NewReader(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	}, googleRevokeMessage)
	return err
}

func googleRevokeMessage(body []byte) string {
	var er struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	if er.ErrorDescription != "" {
		return er.ErrorDescription
	}
	return er.Error
}

func statusOf(in *models.Integration) *models.IntegrationStatus {
	return &models.IntegrationStatus{
		Platform:        in.Platform,
		Connected:       true,
		ProfileID:       in.ProfileID,
		ChannelID:       in.ChannelID,
		ChannelTitle:    in.ChannelTitle,
		ChannelUsername: in.ChannelUsername,
	}
}
