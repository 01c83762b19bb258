package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/crosspost/internal/models"
)

const MaxImageSize = 10 << 20

// MaxAttachmentSize caps a downloaded attachment. It matches the HTTP body
// limit of the server.
var MaxAttachmentSize int64 = 100 << 20

var ErrAttachmentTooLarge = errors.New("attachment too large")

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {},
}

// ValidateImage sniffs data and returns its MIME type when it is an accepted
// image no larger than MaxImageSize.
func ValidateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ValidationError{Reason: "image is empty"}
	}
	if len(data) > MaxImageSize {
		return "", ValidationError{Reason: fmt.Sprintf("image exceeds %d bytes", MaxImageSize)}
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "", ValidationError{Reason: "unrecognized image type"}
	}
	if _, ok := allowedImageTypes[kind.Extension]; !ok {
		return "", ValidationError{Reason: fmt.Sprintf("image type %s is not allowed", kind.Extension)}
	}
	return kind.MIME.Value, nil
}

func extensionFor(data []byte, contentType string) string {
	if kind, err := filetype.Match(data); err == nil && kind != types.Unknown {
		return "." + kind.Extension
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	return ".bin"
}

// Classify builds an attachment from raw bytes and reports its category.
func Classify(data []byte, filename, declaredType string) (models.FileAttachment, string) {
	a := models.FileAttachment{Data: data, Filename: filename, MimeType: declaredType}
	kind, err := filetype.Match(data)
	if err == nil && kind != types.Unknown {
		a.MimeType = kind.MIME.Value
	}
	if a.MimeType == "" {
		a.MimeType = "application/octet-stream"
	}
	switch {
	case filetype.IsImage(data):
		return a, "images"
	case filetype.IsVideo(data):
		return a, "videos"
	default:
		return a, "otherFiles"
	}
}

// AddFiles reads multipart files into content, sorted into images, videos
// and other files by their sniffed type.
func AddFiles(content *models.PostContent, files []*multipart.FileHeader) error {
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		AddAttachment(content, data, fh.Filename, fh.Header.Get("Content-Type"))
	}
	return nil
}

// AddAttachment classifies data and appends it to the matching list.
func AddAttachment(content *models.PostContent, data []byte, filename, declaredType string) {
	a, category := Classify(data, filename, declaredType)
	switch category {
	case "images":
		content.Images = append(content.Images, a)
	case "videos":
		content.Videos = append(content.Videos, a)
	default:
		content.OtherFiles = append(content.OtherFiles, a)
	}
}

// HydrateAttachments returns a copy of content where every attachment that
// carries only a URL has been downloaded.
func HydrateAttachments(ctx context.Context, client *http.Client, content *models.PostContent) (*models.PostContent, error) {
	out := *content
	var err error
	if out.Images, err = hydrate(ctx, client, content.Images); err != nil {
		return nil, err
	}
	if out.Videos, err = hydrate(ctx, client, content.Videos); err != nil {
		return nil, err
	}
	if out.OtherFiles, err = hydrate(ctx, client, content.OtherFiles); err != nil {
		return nil, err
	}
	return &out, nil
}

func hydrate(ctx context.Context, client *http.Client, in []models.FileAttachment) ([]models.FileAttachment, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]models.FileAttachment, len(in))
	for i, a := range in {
		out[i] = a
		if len(a.Data) > 0 || a.URL == "" {
			continue
		}
		data, err := download(ctx, client, a.URL)
		if err != nil {
			return nil, err
		}
		out[i].Data = data
	}
	return out, nil
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status downloading %s: %d", url, resp.StatusCode)
	}
	if resp.ContentLength > MaxAttachmentSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrAttachmentTooLarge, url, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", url, err)
	}
	if int64(len(data)) > MaxAttachmentSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrAttachmentTooLarge, url, MaxAttachmentSize)
	}
	return data, nil
}
