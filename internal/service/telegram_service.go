package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const telegramParseMode = "MarkdownV2"

// maxMediaGroup is the largest album sendMediaGroup accepts.
const maxMediaGroup = 10

var telegramEscaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
	"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

func EscapeMarkdownV2(text string) string {
	return telegramEscaper.Replace(text)
}

// formatTelegramText builds the message text or caption and the parse mode
// it requires. Rich mode is used only when a title is present or escaping
// changed the text.
func formatTelegramText(content *models.PostContent) (string, string) {
	text := EscapeMarkdownV2(content.Text)
	if content.Title != "" {
		return "*" + EscapeMarkdownV2(content.Title) + "*\n\n" + text, telegramParseMode
	}
	if text != content.Text {
		return text, telegramParseMode
	}
	return text, ""
}

type botFile struct {
	field      string
	attachment models.FileAttachment
}

// telegramBot is a minimal Bot API client shared by the adapter and the
// channel binding flow.
type telegramBot struct {
	token  string
	apiURL string
	client *http.Client
}

func newTelegramBot(cfg config.Telegram, client *http.Client) *telegramBot {
	return &telegramBot{
		token:  cfg.BotToken,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		client: client,
	}
}

func telegramMessage(body []byte) string {
	var tr transfer.TelegramResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return ""
	}
	return tr.Description
}

// call invokes a Bot API method. Without files the parameters are sent url
// encoded, otherwise as multipart with each file under its own field.
func (b *telegramBot) call(ctx context.Context, method string, params map[string]string, files []botFile, out any) error {
	if b.token == "" {
		return NotConnectedError{Platform: models.PlatformTelegram, Reason: "bot token not configured"}
	}

	req := apiRequest{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/%s", b.apiURL, b.token, method),
	}

	if len(files) == 0 {
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		req.Body = strings.NewReader(form.Encode())
		req.ContentType = "application/x-www-form-urlencoded"
	} else {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range params {
			if err := w.WriteField(k, v); err != nil {
				return err
			}
		}
		for _, f := range files {
			part, err := w.CreateFormFile(f.field, fileName(f.attachment, f.field))
			if err != nil {
				return err
			}
			if _, err := part.Write(f.attachment.Data); err != nil {
				return err
			}
		}
		if err := w.Close(); err != nil {
			return err
		}
		req.Body = &buf
		req.ContentType = w.FormDataContentType()
	}

	var tr transfer.TelegramResponse
	resp, err := doJSON(ctx, b.client, models.PlatformTelegram, req, telegramMessage, &tr)
	if err != nil {
		return err
	}
	if !tr.OK {
		return &PlatformError{
			Platform:   models.PlatformTelegram,
			Kind:       models.ErrorKindPlatformRejected,
			StatusCode: resp.StatusCode,
			Message:    tr.Description,
			Details:    tr,
		}
	}
	if out != nil && len(tr.Result) > 0 {
		if err := json.Unmarshal(tr.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (b *telegramBot) GetMe(ctx context.Context) (*transfer.TelegramUser, error) {
	var me transfer.TelegramUser
	if err := b.call(ctx, "getMe", nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (b *telegramBot) GetChatMemberCount(ctx context.Context, chatID string) (int, error) {
	var count int
	err := b.call(ctx, "getChatMemberCount", map[string]string{"chat_id": chatID}, nil, &count)
	return count, err
}

type telegramService struct {
	bot   *telegramBot
	creds CredentialService
}

func NewTelegramService(cfg config.Telegram, client *http.Client, creds CredentialService) Adapter {
	return &telegramService{bot: newTelegramBot(cfg, client), creds: creds}
}

func (s *telegramService) Platform() string {
	return models.PlatformTelegram
}

func (s *telegramService) CreatePost(ctx context.Context, userID string, content *models.PostContent) models.PostResponse {
	res := s.createPost(ctx, userID, content)
	logFailure(models.PlatformTelegram, "create", res)
	return res
}

func (s *telegramService) createPost(ctx context.Context, userID string, content *models.PostContent) models.PostResponse {
	if content.IsEmpty() {
		return failure(ValidationError{Platform: models.PlatformTelegram, Reason: "post has no text or attachments"}, "")
	}
	mediaType, attachments := telegramAttachments(content)
	if len(attachments) > maxMediaGroup {
		return failure(ValidationError{
			Platform: models.PlatformTelegram,
			Reason:   fmt.Sprintf("an album holds at most %d items, got %d", maxMediaGroup, len(attachments)),
		}, "")
	}
	if dropped := droppedCategories(content, mediaType); len(dropped) > 0 {
		slog.Warn("telegram sends one attachment category per post", "user_id", userID, "sent", mediaType, "dropped", strings.Join(dropped, ","))
	}

	in, err := s.creds.Resolve(ctx, userID, models.PlatformTelegram)
	if err != nil {
		return failure(err, "")
	}
	chatID := in.ChatTarget()
	text, parseMode := formatTelegramText(content)

	var msg transfer.TelegramMessage
	switch len(attachments) {
	case 0:
		params := map[string]string{"chat_id": chatID, "text": text}
		if parseMode != "" {
			params["parse_mode"] = parseMode
		}
		err = s.bot.call(ctx, "sendMessage", params, nil, &msg)
	case 1:
		err = s.sendSingle(ctx, chatID, mediaType, attachments[0], text, parseMode, &msg)
	default:
		msg, err = s.sendMediaGroup(ctx, chatID, mediaType, attachments, text, parseMode)
	}
	if err != nil {
		return failure(err, "failed to create post on telegram")
	}

	return messageResponse(msg)
}

func (s *telegramService) sendSingle(ctx context.Context, chatID, mediaType string, a models.FileAttachment, caption, parseMode string, out *transfer.TelegramMessage) error {
	method, field := singleSendMethod(mediaType)
	params := map[string]string{"chat_id": chatID}
	if caption != "" {
		params["caption"] = caption
	}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}

	var files []botFile
	if len(a.Data) == 0 && a.URL != "" {
		params[field] = a.URL
	} else {
		files = append(files, botFile{field: field, attachment: a})
	}
	return s.bot.call(ctx, method, params, files, out)
}

// sendMediaGroup sends every attachment as one album. Only the first item
// carries the caption and the first message represents the post.
func (s *telegramService) sendMediaGroup(ctx context.Context, chatID, mediaType string, attachments []models.FileAttachment, caption, parseMode string) (transfer.TelegramMessage, error) {
	media := make([]transfer.TelegramInputMedia, 0, len(attachments))
	var files []botFile
	for i, a := range attachments {
		item := transfer.TelegramInputMedia{Type: mediaType}
		if len(a.Data) == 0 && a.URL != "" {
			item.Media = a.URL
		} else {
			field := "file" + strconv.Itoa(i)
			item.Media = "attach://" + field
			files = append(files, botFile{field: field, attachment: a})
		}
		if i == 0 {
			item.Caption = caption
			item.ParseMode = parseMode
		}
		media = append(media, item)
	}

	raw, err := json.Marshal(media)
	if err != nil {
		return transfer.TelegramMessage{}, err
	}

	var msgs []transfer.TelegramMessage
	params := map[string]string{"chat_id": chatID, "media": string(raw)}
	if err := s.bot.call(ctx, "sendMediaGroup", params, files, &msgs); err != nil {
		return transfer.TelegramMessage{}, err
	}
	if len(msgs) == 0 {
		return transfer.TelegramMessage{}, &PlatformError{
			Platform: models.PlatformTelegram,
			Kind:     models.ErrorKindPlatformRejected,
			Message:  "media group returned no messages",
		}
	}
	return msgs[0], nil
}

func (s *telegramService) EditPost(ctx context.Context, userID, postID string, content *models.PostContent) models.PostResponse {
	res := s.editPost(ctx, userID, postID, content)
	logFailure(models.PlatformTelegram, "edit", res)
	return res
}

// editPost tries a caption edit first. A text edit is attempted only when the
// new content has no attachments.
func (s *telegramService) editPost(ctx context.Context, userID, postID string, content *models.PostContent) models.PostResponse {
	if content.IsEmpty() {
		return failure(ValidationError{Platform: models.PlatformTelegram, Reason: "post has no text or attachments"}, "")
	}
	in, err := s.creds.Resolve(ctx, userID, models.PlatformTelegram)
	if err != nil {
		return failure(err, "")
	}

	text, parseMode := formatTelegramText(content)
	params := map[string]string{"chat_id": in.ChatTarget(), "message_id": postID, "caption": text}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}

	var msg transfer.TelegramMessage
	captionErr := s.bot.call(ctx, "editMessageCaption", params, nil, &msg)
	if captionErr == nil {
		return messageResponse(msg)
	}
	if content.HasAttachments() {
		return failure(captionErr, "failed to edit post on telegram")
	}

	delete(params, "caption")
	params["text"] = text
	if err := s.bot.call(ctx, "editMessageText", params, nil, &msg); err != nil {
		return failure(err, "failed to edit post on telegram")
	}
	return messageResponse(msg)
}

func (s *telegramService) DeletePost(ctx context.Context, userID, postID string) models.PostResponse {
	res := s.deletePost(ctx, userID, postID)
	logFailure(models.PlatformTelegram, "delete", res)
	return res
}

func (s *telegramService) deletePost(ctx context.Context, userID, postID string) models.PostResponse {
	in, err := s.creds.Resolve(ctx, userID, models.PlatformTelegram)
	if err != nil {
		return failure(err, "")
	}
	params := map[string]string{"chat_id": in.ChatTarget(), "message_id": postID}
	if err := s.bot.call(ctx, "deleteMessage", params, nil, nil); err != nil {
		return failure(err, "failed to delete post on telegram")
	}
	return models.Succeeded(postID, "")
}

// telegramAttachments picks the single category that will be sent, in the
// order images, videos, other files.
func telegramAttachments(content *models.PostContent) (string, []models.FileAttachment) {
	switch {
	case len(content.Images) > 0:
		return "photo", content.Images
	case len(content.Videos) > 0:
		return "video", content.Videos
	case len(content.OtherFiles) > 0:
		return "document", content.OtherFiles
	}
	return "", nil
}

// droppedCategories names the attachment lists left out when mediaType is
// the one sent.
func droppedCategories(content *models.PostContent, mediaType string) []string {
	var dropped []string
	if mediaType != "photo" && len(content.Images) > 0 {
		dropped = append(dropped, "images")
	}
	if mediaType != "video" && len(content.Videos) > 0 {
		dropped = append(dropped, "videos")
	}
	if mediaType != "document" && len(content.OtherFiles) > 0 {
		dropped = append(dropped, "otherFiles")
	}
	return dropped
}

func singleSendMethod(mediaType string) (method, field string) {
	switch mediaType {
	case "photo":
		return "sendPhoto", "photo"
	case "video":
		return "sendVideo", "video"
	default:
		return "sendDocument", "document"
	}
}

func messageResponse(msg transfer.TelegramMessage) models.PostResponse {
	postID := strconv.FormatInt(msg.MessageID, 10)
	postURL := ""
	if msg.Chat.Username != "" {
		postURL = fmt.Sprintf("https://t.me/%s/%s", msg.Chat.Username, postID)
	}
	return models.Succeeded(postID, postURL)
}

func fileName(a models.FileAttachment, fallback string) string {
	if a.Filename != "" {
		return a.Filename
	}
	return fallback
}
