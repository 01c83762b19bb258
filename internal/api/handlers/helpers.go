package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const scheduledTimeLayout = "2006-01-02T15:04"

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// parsePublishRequest accepts a JSON body or a multipart form with text,
// title, platforms and files fields.
func parsePublishRequest(c *fiber.Ctx) (*transfer.PublishRequest, error) {
	var req transfer.PublishRequest

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(&req); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		return &req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("unable to parse form: %w", err)
	}
	req.Text = c.FormValue("text")
	req.Title = c.FormValue("title")
	req.ScheduledTime = c.FormValue("scheduled_time")
	for _, v := range form.Value["platforms"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				req.Platforms = append(req.Platforms, p)
			}
		}
	}
	if v := c.FormValue("delay_seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid delay_seconds: %w", err)
		}
		req.DelaySeconds = &n
	}
	if err := service.AddFiles(&req.PostContent, form.File["files"]); err != nil {
		return nil, err
	}
	return &req, nil
}

func validatePlatforms(platforms []string) error {
	for _, p := range platforms {
		if !models.IsSupportedPlatform(p) {
			return fmt.Errorf("unsupported platform %q", p)
		}
	}
	return nil
}

// publishDelay picks delay_seconds, then scheduled_time, then the default.
func publishDelay(req *transfer.PublishRequest, fallback time.Duration) (time.Duration, error) {
	if req.DelaySeconds != nil {
		if *req.DelaySeconds < 0 {
			return 0, errors.New("delay_seconds must not be negative")
		}
		return time.Duration(*req.DelaySeconds) * time.Second, nil
	}
	if req.ScheduledTime != "" {
		scheduledTime, err := time.Parse(scheduledTimeLayout, req.ScheduledTime)
		if err != nil {
			return 0, fmt.Errorf("invalid scheduled time format: %w", err)
		}
		delay := time.Until(scheduledTime)
		if delay < 0 {
			delay = 0
		}
		return delay, nil
	}
	return fallback, nil
}

// responseStatus maps a single platform outcome onto an HTTP status.
func responseStatus(res models.PostResponse) int {
	switch {
	case res.Success:
		return fiber.StatusOK
	case res.Kind == models.ErrorKindValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func isValidation(err error) bool {
	var ve service.ValidationError
	return errors.As(err, &ve)
}
