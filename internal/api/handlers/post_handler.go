package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	ps      service.PublishService
	posts   service.PostService
	storage service.StorageService
	ph      repository.PublishHistoryRepository
	enq     queue.Enqueuer
	client  *http.Client
	cfg     *config.Config
}

// NewPostHandler wires the publish routes. storage may be nil, in which case
// scheduled jobs carry attachment bytes inline. client downloads attachments
// given by URL on the synchronous routes.
func NewPostHandler(cfg *config.Config, ps service.PublishService, posts service.PostService, storage service.StorageService, ph repository.PublishHistoryRepository, enq queue.Enqueuer, client *http.Client) *PostHandler {
	return &PostHandler{ps: ps, posts: posts, storage: storage, ph: ph, enq: enq, client: client, cfg: cfg}
}

// hydrate fetches URL-only attachments so adapters always see bytes.
func (h *PostHandler) hydrate(c *fiber.Ctx, content *models.PostContent) (*models.PostContent, error) {
	hydrated, err := service.HydrateAttachments(c.Context(), h.client, content)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return hydrated, nil
}

func (h *PostHandler) Publish(c *fiber.Ctx) error {
	userID := GetUserID(c)
	req, err := parsePublishRequest(c)
	if err != nil {
		slog.Info(err.Error())
		return badRequest(c, err.Error())
	}
	if err := validatePlatforms(req.Platforms); err != nil {
		return badRequest(c, err.Error())
	}

	content, err := h.hydrate(c, &req.PostContent)
	if err != nil {
		return badRequest(c, err.Error())
	}

	agg, err := h.ps.PublishAll(c.Context(), userID, "", content, req.Platforms...)
	if err != nil {
		if isValidation(err) {
			return badRequest(c, err.Error())
		}
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to publish post",
		})
	}

	return c.Status(agg.StatusCode()).JSON(agg)
}

func (h *PostHandler) Schedule(c *fiber.Ctx) error {
	userID := GetUserID(c)
	req, err := parsePublishRequest(c)
	if err != nil {
		slog.Info(err.Error())
		return badRequest(c, err.Error())
	}
	if req.PostContent.IsEmpty() {
		return badRequest(c, "Post must have text or at least one attachment")
	}
	if err := validatePlatforms(req.Platforms); err != nil {
		return badRequest(c, err.Error())
	}
	delay, err := publishDelay(req, h.cfg.Publish.DefaultDelay)
	if err != nil {
		return badRequest(c, err.Error())
	}

	content := &req.PostContent
	if h.storage != nil && content.HasAttachments() {
		if content, err = h.storage.OffloadAttachments(c.Context(), content); err != nil {
			slog.Error(err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unable to store attachments",
			})
		}
	}

	jobID, err := queue.EnqueuePublish(c.Context(), h.enq, queue.PublishPayload{
		UserID:    userID,
		Content:   *content,
		Platforms: req.Platforms,
	}, delay, h.cfg.Publish.MaxAttempts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error scheduling post",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(transfer.ScheduleResponse{
		Success: true,
		Message: "Post scheduled successfully",
		JobID:   jobID,
	})
}

// EditPost updates one platform post. A YouTube edit deletes the original
// before creating the replacement; a failed create reports the original as
// already gone.
func (h *PostHandler) EditPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	req, err := parsePublishRequest(c)
	if err != nil {
		slog.Info(err.Error())
		return badRequest(c, err.Error())
	}

	content, err := h.hydrate(c, &req.PostContent)
	if err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.ps.EditPost(c.Context(), userID, c.Params("platform"), c.Params("id"), content)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(responseStatus(res)).JSON(res)
}

func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	res, err := h.ps.DeletePost(c.Context(), userID, c.Params("platform"), c.Params("id"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(responseStatus(res)).JSON(res)
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.posts.Create(c.Context(), userID, &req)
	if err != nil {
		if isValidation(err) {
			return badRequest(c, "Title and content are required")
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create post",
		})
	}
	return c.Status(fiber.StatusOK).JSON(transfer.CreatePostResponse{Success: true, Post: post})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	res, err := h.posts.List(c.Context(), userID, c.QueryInt("page", 1), c.QueryInt("limit", 10), c.Query("search"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *PostHandler) History(c *fiber.Ctx) error {
	userID := GetUserID(c)

	entries, err := h.ph.GetByUserID(c.Context(), userID, c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list publish history",
		})
	}
	if entries == nil {
		entries = []*models.PublishHistory{}
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}

func (h *PostHandler) UploadImage(c *fiber.Ctx) error {
	if h.storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Image storage is not configured",
		})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	if fh.Size > service.MaxImageSize {
		return badRequest(c, "File exceeds the 10MB limit")
	}

	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "Unable to read file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return badRequest(c, "Unable to read file")
	}

	res, err := h.storage.UploadImage(c.Context(), data)
	if err != nil {
		if isValidation(err) {
			return badRequest(c, err.Error())
		}
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to upload image",
		})
	}
	return c.Status(fiber.StatusOK).JSON(res)
}
