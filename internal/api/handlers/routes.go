package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts the public OAuth callback routes on app and the
// authenticated routes on api.
func Register(app fiber.Router, api fiber.Router, post *PostHandler, platform *PlatformHandler) {
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/publish", post.Publish)
	api.Post("/posts/schedule", post.Schedule)
	api.Post("/posts/upload-image", post.UploadImage)
	api.Get("/posts/history", post.History)
	api.Post("/posts/:platform/:id/edit", post.EditPost)
	api.Delete("/posts/:platform/:id", post.DeletePost)

	api.Get("/integrations", platform.ListIntegrations)
	api.Post("/integrations/telegram/connect", platform.ConnectTelegram)
	api.Get("/integrations/:platform/auth-url", platform.AuthURL)
	api.Get("/integrations/:platform/status", platform.Status)
	api.Post("/integrations/:platform/disconnect", platform.Disconnect)
}
