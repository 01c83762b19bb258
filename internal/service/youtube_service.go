package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const youtubeEditNote = "youtube does not support editing community posts: the original post was deleted and a new one was created"

type youtubeService struct {
	apiURL string
	client *http.Client
	creds  CredentialService
}

func NewYoutubeService(cfg config.Google, client *http.Client, creds CredentialService) Adapter {
	return &youtubeService{
		apiURL: strings.TrimRight(cfg.YoutubeURL, "/"),
		client: client,
		creds:  creds,
	}
}

func (s *youtubeService) Platform() string {
	return models.PlatformYoutube
}

func googleMessage(body []byte) string {
	var er transfer.GoogleErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	return er.Error.Message
}

func (s *youtubeService) CreatePost(ctx context.Context, userID string, content *models.PostContent) models.PostResponse {
	res := s.createPost(ctx, userID, content)
	logFailure(models.PlatformYoutube, "create", res)
	return res
}

func (s *youtubeService) createPost(ctx context.Context, userID string, content *models.PostContent) models.PostResponse {
	if content == nil || content.Text == "" {
		return failure(ValidationError{Platform: models.PlatformYoutube, Reason: "text is required for community posts"}, "")
	}
	in, err := s.creds.Resolve(ctx, userID, models.PlatformYoutube)
	if err != nil {
		return failure(err, "")
	}

	post := transfer.YoutubeChannelPost{
		Snippet: transfer.YoutubeChannelPostSnippet{
			ChannelID:     in.ChannelID,
			CommunityPost: transfer.YoutubeCommunityPost{Content: content.Text},
		},
	}

	if len(content.Images) > 0 {
		imageURL, err := s.uploadImage(ctx, in.AccessToken, content.Images[0])
		var ve ValidationError
		if errors.As(err, &ve) {
			return failure(err, "")
		}
		if err != nil {
			slog.Warn("youtube image upload failed, posting text only", "user_id", userID, "error", err)
		} else if imageURL != "" {
			post.Snippet.CommunityPost.Attachments = []transfer.YoutubeAttachment{
				{Image: transfer.YoutubeImage{Source: transfer.YoutubeImageSource{URL: imageURL}}},
			}
		}
	}

	body, err := jsonBody(post)
	if err != nil {
		return failure(err, "")
	}

	var created transfer.YoutubeChannelPostResponse
	_, err = doJSON(ctx, s.client, models.PlatformYoutube, apiRequest{
		Method:      http.MethodPost,
		URL:         s.apiURL + "/youtube/v3/channelPosts?part=snippet",
		Body:        body,
		ContentType: "application/json",
		Headers:     map[string]string{"Authorization": "Bearer " + in.AccessToken},
	}, googleMessage, &created)
	if err != nil {
		return failure(err, "failed to create post on youtube")
	}
	if created.ID == "" {
		return models.Failed(models.ErrorKindPlatformRejected, "youtube returned no post id", nil)
	}

	return models.Succeeded(created.ID, youtubePostURL(in.ChannelID, created.ID))
}

func (s *youtubeService) uploadImage(ctx context.Context, accessToken string, image models.FileAttachment) (string, error) {
	if len(image.Data) == 0 {
		return "", ValidationError{Platform: models.PlatformYoutube, Reason: fmt.Sprintf("image %q has no data", image.Filename)}
	}
	var uploaded transfer.YoutubeImageUploadResponse
	_, err := doJSON(ctx, s.client, models.PlatformYoutube, apiRequest{
		Method:      http.MethodPost,
		URL:         s.apiURL + "/upload/youtube/v3/channelPosts/images",
		Body:        bytes.NewReader(image.Data),
		ContentType: image.MimeType,
		Headers:     map[string]string{"Authorization": "Bearer " + accessToken},
	}, googleMessage, &uploaded)
	if err != nil {
		return "", err
	}
	return uploaded.URL, nil
}

func (s *youtubeService) EditPost(ctx context.Context, userID, postID string, content *models.PostContent) models.PostResponse {
	res := s.editPost(ctx, userID, postID, content)
	logFailure(models.PlatformYoutube, "edit", res)
	return res
}

// editPost deletes the original post and creates a new one. The sequence is
// not atomic: a failed create leaves the original deleted.
func (s *youtubeService) editPost(ctx context.Context, userID, postID string, content *models.PostContent) models.PostResponse {
	if content == nil || content.Text == "" {
		return failure(ValidationError{Platform: models.PlatformYoutube, Reason: "text is required for community posts"}, "")
	}

	deleted := s.deletePost(ctx, userID, postID)
	if !deleted.Success {
		return models.Failed(deleted.Kind, "could not update the community post: "+deleted.Error, deleted.Details)
	}

	created := s.createPost(ctx, userID, content)
	if !created.Success {
		return models.Failed(
			models.ErrorKindPartialProtocolFailure,
			"original post was deleted but the updated post could not be created: "+created.Error,
			map[string]any{
				"originalDeleted": true,
				"originalPostId":  postID,
				"note":            "the original community post no longer exists",
				"createDetails":   created.Details,
			},
		)
	}

	created.Details = map[string]any{"note": youtubeEditNote, "originalPostId": postID}
	return created
}

func (s *youtubeService) DeletePost(ctx context.Context, userID, postID string) models.PostResponse {
	res := s.deletePost(ctx, userID, postID)
	logFailure(models.PlatformYoutube, "delete", res)
	return res
}

func (s *youtubeService) deletePost(ctx context.Context, userID, postID string) models.PostResponse {
	in, err := s.creds.Resolve(ctx, userID, models.PlatformYoutube)
	if err != nil {
		return failure(err, "")
	}
	_, _, err = doRequest(ctx, s.client, models.PlatformYoutube, apiRequest{
		Method:  http.MethodDelete,
		URL:     s.apiURL + "/youtube/v3/channelPosts?id=" + url.QueryEscape(postID),
		Headers: map[string]string{"Authorization": "Bearer " + in.AccessToken},
	}, googleMessage)
	if err != nil {
		return failure(err, "failed to delete post on youtube")
	}
	return models.Succeeded(postID, "")
}

func youtubePostURL(channelID, postID string) string {
	return "https://www.youtube.com/channel/" + channelID + "/community/" + postID
}
