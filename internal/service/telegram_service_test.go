package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botCall struct {
	method string
	form   map[string]string
	files  []string
}

type fakeBot struct {
	mu      sync.Mutex
	calls   []botCall
	replies map[string]string
	status  map[string]int
}

func newFakeBot(t *testing.T) (*fakeBot, *httptest.Server) {
	t.Helper()
	fb := &fakeBot{replies: map[string]string{}, status: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]
		assert.Equal(t, "/bottest-token/"+method, r.URL.Path)

		call := botCall{method: method, form: map[string]string{}}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			require.NoError(t, r.ParseMultipartForm(32<<20))
			for k, v := range r.MultipartForm.Value {
				call.form[k] = v[0]
			}
			for k := range r.MultipartForm.File {
				call.files = append(call.files, k)
			}
		} else {
			require.NoError(t, r.ParseForm())
			for k, v := range r.PostForm {
				call.form[k] = v[0]
			}
		}

		fb.mu.Lock()
		fb.calls = append(fb.calls, call)
		reply, ok := fb.replies[method]
		status := fb.status[method]
		fb.mu.Unlock()

		if !ok {
			reply = `{"ok":true,"result":{"message_id":1,"chat":{"id":-100,"username":"chan"}}}`
		}
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBot) methods() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	var out []string
	for _, c := range fb.calls {
		out = append(out, c.method)
	}
	return out
}

func newTestTelegram(srv *httptest.Server, token string) Adapter {
	creds := staticCreds{in: &models.Integration{UserID: "u1", ChannelUsername: "@chan"}}
	return NewTelegramService(config.Telegram{BotToken: token, APIURL: srv.URL}, srv.Client(), creds)
}

func png(name string) models.FileAttachment {
	return models.FileAttachment{
		Data:     []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d},
		Filename: name,
		MimeType: "image/png",
	}
}

func TestFormatTelegramText(t *testing.T) {
	text, mode := formatTelegramText(&models.PostContent{Text: "plain words"})
	assert.Equal(t, "plain words", text)
	assert.Empty(t, mode)

	text, mode = formatTelegramText(&models.PostContent{Text: "v1.2 (beta)!"})
	assert.Equal(t, `v1\.2 \(beta\)\!`, text)
	assert.Equal(t, "MarkdownV2", mode)

	text, mode = formatTelegramText(&models.PostContent{Title: "Launch_day", Text: "hello"})
	assert.Equal(t, "*Launch\\_day*\n\nhello", text)
	assert.Equal(t, "MarkdownV2", mode)
}

func TestTelegram_CreateTextPost(t *testing.T) {
	fb, srv := newFakeBot(t)
	fb.replies["sendMessage"] = `{"ok":true,"result":{"message_id":42,"chat":{"id":-100,"username":"chan"}}}`

	res := newTestTelegram(srv, "test-token").CreatePost(context.Background(), "u1", &models.PostContent{Text: "hello"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "42", res.PostID)
	assert.Equal(t, "https://t.me/chan/42", res.PostURL)

	require.Equal(t, []string{"sendMessage"}, fb.methods())
	assert.Equal(t, "@chan", fb.calls[0].form["chat_id"])
	assert.Equal(t, "hello", fb.calls[0].form["text"])
	_, hasMode := fb.calls[0].form["parse_mode"]
	assert.False(t, hasMode)
}

func TestTelegram_SingleImageUsesSendPhoto(t *testing.T) {
	fb, srv := newFakeBot(t)

	res := newTestTelegram(srv, "test-token").CreatePost(context.Background(), "u1", &models.PostContent{
		Text:   "caption",
		Images: []models.FileAttachment{png("a.png")},
	})
	require.True(t, res.Success, res.Error)

	require.Equal(t, []string{"sendPhoto"}, fb.methods())
	assert.Equal(t, "caption", fb.calls[0].form["caption"])
	assert.Equal(t, []string{"photo"}, fb.calls[0].files)
}

func TestTelegram_TwoImagesSendOneMediaGroup(t *testing.T) {
	fb, srv := newFakeBot(t)
	fb.replies["sendMediaGroup"] = `{"ok":true,"result":[
		{"message_id":10,"chat":{"id":-100,"username":"chan"}},
		{"message_id":11,"chat":{"id":-100,"username":"chan"}}]}`

	res := newTestTelegram(srv, "test-token").CreatePost(context.Background(), "u1", &models.PostContent{
		Title:  "Album",
		Text:   "two shots",
		Images: []models.FileAttachment{png("a.png"), png("b.png")},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "10", res.PostID)
	assert.Equal(t, "https://t.me/chan/10", res.PostURL)

	require.Equal(t, []string{"sendMediaGroup"}, fb.methods())
	call := fb.calls[0]
	assert.ElementsMatch(t, []string{"file0", "file1"}, call.files)

	var media []transfer.TelegramInputMedia
	require.NoError(t, json.Unmarshal([]byte(call.form["media"]), &media))
	require.Len(t, media, 2)
	assert.Equal(t, "photo", media[0].Type)
	assert.Equal(t, "attach://file0", media[0].Media)
	assert.Equal(t, "*Album*\n\ntwo shots", media[0].Caption)
	assert.Equal(t, "MarkdownV2", media[0].ParseMode)
	assert.Empty(t, media[1].Caption)
	assert.Empty(t, media[1].ParseMode)
}

func TestTelegram_OversizedAlbumFailsBeforeNetwork(t *testing.T) {
	fb, srv := newFakeBot(t)

	images := make([]models.FileAttachment, maxMediaGroup+1)
	for i := range images {
		images[i] = png("a.png")
	}
	res := newTestTelegram(srv, "test-token").CreatePost(context.Background(), "u1", &models.PostContent{
		Text:   "too many",
		Images: images,
	})
	require.False(t, res.Success)
	assert.Equal(t, models.ErrorKindValidation, res.Kind)
	assert.Empty(t, fb.methods())
}

func TestTelegram_MixedAttachmentsSendImagesOnly(t *testing.T) {
	fb, srv := newFakeBot(t)

	content := &models.PostContent{
		Text:       "mixed",
		Images:     []models.FileAttachment{png("a.png")},
		Videos:     []models.FileAttachment{{URL: "https://cdn.example.com/v.mp4"}},
		OtherFiles: []models.FileAttachment{{URL: "https://cdn.example.com/a.pdf"}},
	}
	res := newTestTelegram(srv, "test-token").CreatePost(context.Background(), "u1", content)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"sendPhoto"}, fb.methods())

	assert.Equal(t, []string{"videos", "otherFiles"}, droppedCategories(content, "photo"))
	assert.Empty(t, droppedCategories(&models.PostContent{Videos: content.Videos}, "video"))
}

func TestTelegram_URLAttachmentsAreSentByReference(t *testing.T) {
	fb, srv := newFakeBot(t)

	res := newTestTelegram(srv, "test-token").CreatePost(context.Background(), "u1", &models.PostContent{
		Text:   "linked",
		Videos: []models.FileAttachment{{URL: "https://cdn.example.com/v.mp4", MimeType: "video/mp4"}},
	})
	require.True(t, res.Success, res.Error)
	require.Equal(t, []string{"sendVideo"}, fb.methods())
	assert.Equal(t, "https://cdn.example.com/v.mp4", fb.calls[0].form["video"])
	assert.Empty(t, fb.calls[0].files)
}

func TestTelegram_MissingBotTokenMakesNoCall(t *testing.T) {
	fb, srv := newFakeBot(t)

	res := newTestTelegram(srv, "").CreatePost(context.Background(), "u1", &models.PostContent{Text: "hello"})
	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorKindNotConnected, res.Kind)
	assert.Empty(t, fb.methods())
}

func TestTelegram_PlatformRejection(t *testing.T) {
	fb, srv := newFakeBot(t)
	fb.status["sendMessage"] = http.StatusBadRequest
	fb.replies["sendMessage"] = `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`

	res := newTestTelegram(srv, "test-token").CreatePost(context.Background(), "u1", &models.PostContent{Text: "hello"})
	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorKindPlatformRejected, res.Kind)
	assert.Equal(t, "Bad Request: chat not found", res.Error)
	assert.NotNil(t, res.Details)
	assert.Empty(t, res.PostID)
}

func TestTelegram_EditFallsBackToText(t *testing.T) {
	fb, srv := newFakeBot(t)
	fb.status["editMessageCaption"] = http.StatusBadRequest
	fb.replies["editMessageCaption"] = `{"ok":false,"error_code":400,"description":"Bad Request: there is no caption in the message to edit"}`
	fb.replies["editMessageText"] = `{"ok":true,"result":{"message_id":42,"chat":{"id":-100,"username":"chan"}}}`

	res := newTestTelegram(srv, "test-token").EditPost(context.Background(), "u1", "42", &models.PostContent{Text: "fixed"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "42", res.PostID)
	assert.Equal(t, []string{"editMessageCaption", "editMessageText"}, fb.methods())
	assert.Equal(t, "fixed", fb.calls[1].form["text"])
	assert.Equal(t, "42", fb.calls[1].form["message_id"])
}

func TestTelegram_EditWithAttachmentsSurfacesCaptionError(t *testing.T) {
	fb, srv := newFakeBot(t)
	fb.status["editMessageCaption"] = http.StatusBadRequest
	fb.replies["editMessageCaption"] = `{"ok":false,"error_code":400,"description":"Bad Request: message can't be edited"}`

	res := newTestTelegram(srv, "test-token").EditPost(context.Background(), "u1", "42", &models.PostContent{
		Text:   "fixed",
		Images: []models.FileAttachment{png("a.png")},
	})
	assert.False(t, res.Success)
	assert.Equal(t, "Bad Request: message can't be edited", res.Error)
	assert.Equal(t, []string{"editMessageCaption"}, fb.methods())
}

func TestTelegram_Delete(t *testing.T) {
	fb, srv := newFakeBot(t)
	fb.replies["deleteMessage"] = `{"ok":true,"result":true}`

	res := newTestTelegram(srv, "test-token").DeletePost(context.Background(), "u1", "42")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "42", res.PostID)
	require.Equal(t, []string{"deleteMessage"}, fb.methods())
	assert.Equal(t, "42", fb.calls[0].form["message_id"])
}
