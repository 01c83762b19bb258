package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// IntegrationRepository is the credential store. The (user_id, platform)
// unique constraint guarantees one integration per pair; Upsert replaces
// the existing row instead of appending.
type IntegrationRepository interface {
	Get(ctx context.Context, userID, platform string) (*models.Integration, error)
	Upsert(ctx context.Context, in *models.Integration) (string, error)
	SetToken(ctx context.Context, userID, platform, accessToken, refreshToken string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID, platform string) error
	ListByUserID(ctx context.Context, userID string) ([]*models.Integration, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.Integration, error)
	Delete(ctx context.Context, userID, platform string) error
}

var ErrIntegrationNotFound = errors.New("integration not found")

type integrationRepository struct {
	db *sql.DB
}

func NewIntegrationRepository(db *sql.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

const integrationColumns = `id, user_id, platform, access_token, refresh_token, profile_id,
	channel_id, channel_title, bot_chat_id, channel_username, expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntegration(row rowScanner) (*models.Integration, error) {
	var in models.Integration
	var refreshToken, profileID, channelID, channelTitle, botChatID, channelUsername sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(&in.ID, &in.UserID, &in.Platform, &in.AccessToken, &refreshToken, &profileID,
		&channelID, &channelTitle, &botChatID, &channelUsername, &expiresAt, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}

	in.RefreshToken = refreshToken.String
	in.ProfileID = profileID.String
	in.ChannelID = channelID.String
	in.ChannelTitle = channelTitle.String
	in.BotChatID = botChatID.String
	in.ChannelUsername = channelUsername.String
	if expiresAt.Valid {
		in.ExpiresAt = expiresAt.Time
	}
	return &in, nil
}

// Get returns nil, nil when the user has no integration for the platform.
func (r *integrationRepository) Get(ctx context.Context, userID, platform string) (*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE user_id = $1 AND platform = $2`

	in, err := scanIntegration(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return in, nil
}

func (r *integrationRepository) Upsert(ctx context.Context, in *models.Integration) (string, error) {
	query := `
		INSERT INTO integrations (
			id,
			user_id,
			platform,
			access_token,
			refresh_token,
			profile_id,
			channel_id,
			channel_title,
			bot_chat_id,
			channel_username,
			expires_at
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, integrations.refresh_token),
			profile_id = EXCLUDED.profile_id,
			channel_id = EXCLUDED.channel_id,
			channel_title = EXCLUDED.channel_title,
			bot_chat_id = EXCLUDED.bot_chat_id,
			channel_username = EXCLUDED.channel_username,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		in.ID,
		in.UserID,
		in.Platform,
		in.AccessToken,
		in.RefreshToken,
		in.ProfileID,
		in.ChannelID,
		in.ChannelTitle,
		in.BotChatID,
		in.ChannelUsername,
		nullTime(in.ExpiresAt),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

// SetToken stores refreshed token material. An empty refreshToken keeps the
// stored one.
func (r *integrationRepository) SetToken(ctx context.Context, userID, platform, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE integrations
		SET
			access_token = $3,
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			expires_at = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND platform = $2
	`
	result, err := r.db.ExecContext(ctx, query, userID, platform, accessToken, refreshToken, nullTime(expiresAt))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return expectOneRow(result)
}

func (r *integrationRepository) ClearRefreshToken(ctx context.Context, userID, platform string) error {
	query := `
		UPDATE integrations
		SET refresh_token = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND platform = $2
	`
	result, err := r.db.ExecContext(ctx, query, userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return expectOneRow(result)
}

func (r *integrationRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE user_id = $1 ORDER BY platform`
	return r.list(ctx, query, userID)
}

// ListExpiring returns integrations holding a refresh token whose access
// token expires before the given time, including already expired ones.
func (r *integrationRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations
		WHERE expires_at IS NOT NULL AND expires_at < $1 AND refresh_token IS NOT NULL`
	return r.list(ctx, query, before)
}

func (r *integrationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Integration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var integrations []*models.Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		integrations = append(integrations, in)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return integrations, nil
}

func (r *integrationRepository) Delete(ctx context.Context, userID, platform string) error {
	query := `DELETE FROM integrations WHERE user_id = $1 AND platform = $2`
	_, err := r.db.ExecContext(ctx, query, userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return ErrIntegrationNotFound
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
