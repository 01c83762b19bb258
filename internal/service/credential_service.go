package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var linkedinEndpoint = oauth2.Endpoint{
	AuthURL:   "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL:  "https://www.linkedin.com/oauth/v2/accessToken",
	AuthStyle: oauth2.AuthStyleInParams,
}

func LinkedinOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Linkedin.ClientID,
		ClientSecret: cfg.Linkedin.ClientSecret,
		RedirectURL:  cfg.Linkedin.RedirectURI,
		Scopes:       []string{"openid", "profile", "w_member_social"},
		Endpoint:     linkedinEndpoint,
	}
}

func GoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube",
			"https://www.googleapis.com/auth/youtube.force-ssl",
		},
		Endpoint: google.Endpoint,
	}
}

// TokenRefresher exchanges a refresh token at a platform token endpoint.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type oauthRefresher struct {
	conf   *oauth2.Config
	client *http.Client
}

func NewOAuthRefresher(conf *oauth2.Config, client *http.Client) TokenRefresher {
	return &oauthRefresher{conf: conf, client: client}
}

func (r *oauthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}
	return r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

// CredentialService resolves a (user, platform) pair to usable, decrypted
// credentials. It is the only writer of integration state outside the
// connect and disconnect actions.
type CredentialService interface {
	Resolve(ctx context.Context, userID, platform string) (*models.Integration, error)
	Refresh(ctx context.Context, stored *models.Integration) error
}

type credentialService struct {
	secretKey  string
	ir         repository.IntegrationRepository
	refreshers map[string]TokenRefresher
	now        func() time.Time
}

func NewCredentialService(secretKey string, ir repository.IntegrationRepository, refreshers map[string]TokenRefresher) CredentialService {
	return &credentialService{
		secretKey:  secretKey,
		ir:         ir,
		refreshers: refreshers,
		now:        time.Now,
	}
}

func (s *credentialService) Resolve(ctx context.Context, userID, platform string) (*models.Integration, error) {
	stored, err := s.ir.Get(ctx, userID, platform)
	if err != nil {
		return nil, &PlatformError{
			Platform: platform,
			Kind:     models.ErrorKindTransient,
			Message:  fmt.Sprintf("load integration: %v", err),
		}
	}
	if stored == nil {
		return nil, NotConnectedError{Platform: platform, Reason: "no integration found"}
	}

	in, err := openIntegration(stored, s.secretKey)
	if err != nil {
		slog.Info(err.Error())
		return nil, NotConnectedError{Platform: platform, Reason: "stored credentials are unreadable"}
	}

	if in.Expired(s.now()) {
		if in, err = s.refresh(ctx, in); err != nil {
			return nil, err
		}
	}

	if err := requireFields(in); err != nil {
		return nil, err
	}
	return in, nil
}

// Refresh renews a stored (encrypted) integration regardless of its expiry.
func (s *credentialService) Refresh(ctx context.Context, stored *models.Integration) error {
	in, err := openIntegration(stored, s.secretKey)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	_, err = s.refresh(ctx, in)
	return err
}

func (s *credentialService) refresh(ctx context.Context, in *models.Integration) (*models.Integration, error) {
	if in.RefreshToken == "" {
		return nil, NotConnectedError{Platform: in.Platform, Reason: "access token expired and no refresh token is stored"}
	}
	refresher, ok := s.refreshers[in.Platform]
	if !ok {
		return nil, NotConnectedError{Platform: in.Platform, Reason: "access token expired and cannot be renewed"}
	}

	token, err := refresher.Refresh(ctx, in.RefreshToken)
	if err != nil {
		return nil, s.refreshFailure(ctx, in, err)
	}

	refreshed := *in
	refreshed.AccessToken = token.AccessToken
	refreshed.ExpiresAt = token.Expiry
	if token.RefreshToken != "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	sealed, err := sealIntegration(&refreshed, s.secretKey)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	// only pass a refresh token when the endpoint rotated it
	newRefresh := ""
	if token.RefreshToken != "" {
		newRefresh = sealed.RefreshToken
	}
	if err := s.ir.SetToken(ctx, in.UserID, in.Platform, sealed.AccessToken, newRefresh, token.Expiry); err != nil {
		return nil, &PlatformError{
			Platform: in.Platform,
			Kind:     models.ErrorKindTransient,
			Message:  fmt.Sprintf("persist refreshed token: %v", err),
		}
	}

	slog.Info("refreshed access token", "platform", in.Platform, "user_id", in.UserID)
	return &refreshed, nil
}

func (s *credentialService) refreshFailure(ctx context.Context, in *models.Integration, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return &PlatformError{
			Platform: in.Platform,
			Kind:     models.ErrorKindTransient,
			Message:  fmt.Sprintf("token refresh failed: %v", err),
		}
	}

	if re.ErrorCode == "invalid_grant" {
		if cerr := s.ir.ClearRefreshToken(ctx, in.UserID, in.Platform); cerr != nil {
			slog.Error("failed to clear refresh token", "platform", in.Platform, "user_id", in.UserID, "error", cerr)
		}
		return NotConnectedError{Platform: in.Platform, Reason: "refresh token was revoked, reconnect required"}
	}

	message := re.ErrorCode
	if re.ErrorDescription != "" {
		message = re.ErrorCode + ": " + re.ErrorDescription
	}
	pe := &PlatformError{
		Platform: in.Platform,
		Kind:     models.ErrorKindPlatformRejected,
		Message:  "token refresh rejected: " + message,
		Details:  decodeDetails(re.Body),
	}
	if re.Response != nil {
		pe.StatusCode = re.Response.StatusCode
	}
	return pe
}

func requireFields(in *models.Integration) error {
	switch in.Platform {
	case models.PlatformTelegram:
		if in.ChatTarget() == "" {
			return NotConnectedError{Platform: in.Platform, Reason: "no channel bound"}
		}
	case models.PlatformYoutube:
		if in.AccessToken == "" {
			return NotConnectedError{Platform: in.Platform, Reason: errEmptyAccessToken.Error()}
		}
		if in.ChannelID == "" {
			return NotConnectedError{Platform: in.Platform, Reason: "channel id missing"}
		}
	default:
		if in.AccessToken == "" {
			return NotConnectedError{Platform: in.Platform, Reason: errEmptyAccessToken.Error()}
		}
	}
	return nil
}
