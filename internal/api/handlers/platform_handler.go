package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

const oauthStateDuration = 10 * time.Minute

type PlatformHandler struct {
	ps  service.PlatformService
	cfg *config.Config
}

func NewPlatformHandler(cfg *config.Config, ps service.PlatformService) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		cfg: cfg,
	}
}

// AuthURL returns the consent URL for an OAuth platform. The state is a
// short-lived token naming the user and platform.
func (h *PlatformHandler) AuthURL(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	state, err := utils.GenerateToken(h.cfg.SecretKey, userID, platform, oauthStateDuration)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to start authorization",
		})
	}

	authURL, err := h.ps.AuthURL(platform, state)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url": authURL,
	})
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")

	if reason := c.Query("error"); reason != "" {
		slog.Info("authorization denied", "platform", platform, "reason", reason)
		return c.Redirect(h.cfg.FrontendURL + "/dashboard/integrations?error=" + reason)
	}

	claims, err := utils.ValidateToken(h.cfg.SecretKey, c.Query("state"))
	if err != nil || claims.Platform != platform {
		return badRequest(c, "Unable to validate user")
	}

	if _, err := h.ps.Callback(c.Context(), platform, c.Query("code"), claims.UserID); err != nil {
		slog.Error("integration callback failed", "platform", platform, "user_id", claims.UserID, "error", err)
		return badRequest(c, "Something went wrong")
	}

	return c.Redirect(h.cfg.FrontendURL + "/dashboard/integrations")
}

func (h *PlatformHandler) ConnectTelegram(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.TelegramConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	status, err := h.ps.ConnectTelegram(c.Context(), userID, req.ChannelName)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *PlatformHandler) ListIntegrations(c *fiber.Ctx) error {
	userID := GetUserID(c)

	statuses, err := h.ps.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list integrations",
		})
	}
	return c.Status(fiber.StatusOK).JSON(statuses)
}

func (h *PlatformHandler) Status(c *fiber.Ctx) error {
	userID := GetUserID(c)

	status, err := h.ps.Status(c.Context(), userID, c.Params("platform"))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedPlatform) {
			return badRequest(c, err.Error())
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to check integration",
		})
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	userID := GetUserID(c)

	err := h.ps.Disconnect(c.Context(), userID, c.Params("platform"))
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Integration removed",
		})
	case errors.Is(err, service.ErrUnsupportedPlatform):
		return badRequest(c, err.Error())
	case errors.Is(err, repository.ErrIntegrationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Integration not found",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove integration",
		})
	}
}
