package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type linkedinService struct {
	cfg    config.Linkedin
	client *http.Client
	creds  CredentialService
}

func NewLinkedinService(cfg config.Linkedin, client *http.Client, creds CredentialService) Adapter {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &linkedinService{cfg: cfg, client: client, creds: creds}
}

func (s *linkedinService) Platform() string {
	return models.PlatformLinkedin
}

func linkedinMessage(body []byte) string {
	var er transfer.LinkedinErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	return er.Message
}

func (s *linkedinService) headers(accessToken string) map[string]string {
	h := map[string]string{
		"Authorization":             "Bearer " + accessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}
	if s.cfg.APIVersion != "" {
		h["LinkedIn-Version"] = s.cfg.APIVersion
	}
	return h
}

// credentials resolves the integration and requires an author identity.
func (s *linkedinService) credentials(ctx context.Context, userID string) (*models.Integration, error) {
	in, err := s.creds.Resolve(ctx, userID, models.PlatformLinkedin)
	if err != nil {
		return nil, err
	}
	if in.ProfileID == "" {
		return nil, NotConnectedError{Platform: models.PlatformLinkedin, Reason: "profile id missing"}
	}
	return in, nil
}

func (s *linkedinService) CreatePost(ctx context.Context, userID string, content *models.PostContent) models.PostResponse {
	res := s.createPost(ctx, userID, content)
	logFailure(models.PlatformLinkedin, "create", res)
	return res
}

func (s *linkedinService) createPost(ctx context.Context, userID string, content *models.PostContent) models.PostResponse {
	if content.IsEmpty() {
		return failure(ValidationError{Platform: models.PlatformLinkedin, Reason: "post has no text or attachments"}, "")
	}
	in, err := s.credentials(ctx, userID)
	if err != nil {
		return failure(err, "")
	}
	author := "urn:li:person:" + in.ProfileID

	share := transfer.LinkedinShareContent{
		ShareCommentary:    transfer.LinkedinText{Text: content.Text},
		ShareMediaCategory: "NONE",
	}

	switch {
	case len(content.Images) > 0:
		image := content.Images[0]
		asset, err := s.uploadImage(ctx, in.AccessToken, author, image)
		if err != nil {
			return failure(err, "")
		}
		title := content.Title
		if title == "" {
			title = image.Filename
		}
		media := transfer.LinkedinMedia{Status: "READY", Media: asset}
		if title != "" {
			media.Title = &transfer.LinkedinText{Text: title}
		}
		share.Media = []transfer.LinkedinMedia{media}
		share.ShareMediaCategory = "IMAGE"
		if content.Title != "" {
			share.Title = &transfer.LinkedinText{Text: content.Title}
		}
	case len(content.Videos) > 0:
		return models.Failed(models.ErrorKindValidation, "video posting for linkedin is not implemented", nil)
	}

	post := transfer.LinkedinUgcPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: transfer.LinkedinSpecificContent{ShareContent: share},
		Visibility:      transfer.LinkedinVisibility{MemberNetworkVisibility: "PUBLIC"},
	}
	body, err := jsonBody(post)
	if err != nil {
		return failure(err, "")
	}

	var created transfer.LinkedinUgcPostResponse
	resp, err := doJSON(ctx, s.client, models.PlatformLinkedin, apiRequest{
		Method:      http.MethodPost,
		URL:         s.cfg.APIURL + "/v2/ugcPosts",
		Body:        body,
		ContentType: "application/json",
		Headers:     s.headers(in.AccessToken),
	}, linkedinMessage, &created)
	if err != nil {
		if len(share.Media) > 0 {
			return failure(partial(err, "share creation failed after image upload"), "")
		}
		return failure(err, "failed to create post on linkedin")
	}

	postID := created.ID
	if postID == "" {
		postID = resp.Header.Get("X-RestLi-Id")
	}
	if postID == "" {
		return models.Failed(models.ErrorKindPlatformRejected, "linkedin returned no post id", nil)
	}
	return models.Succeeded(postID, linkedinPostURL(postID))
}

// uploadImage registers an upload intent, then PUTs the bytes to the one
// time upload URL. A registered asset left unused by a later failure is not
// cleaned up.
func (s *linkedinService) uploadImage(ctx context.Context, accessToken, author string, image models.FileAttachment) (string, error) {
	if len(image.Data) == 0 {
		return "", ValidationError{Platform: models.PlatformLinkedin, Reason: fmt.Sprintf("image %q has no data", image.Filename)}
	}
	register := transfer.LinkedinRegisterUploadRequest{
		RegisterUploadRequest: transfer.LinkedinRegisterUpload{
			Recipes: []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			Owner:   author,
			ServiceRelationships: []transfer.LinkedinServiceRelationship{
				{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"},
			},
		},
	}
	body, err := jsonBody(register)
	if err != nil {
		return "", err
	}

	var registered transfer.LinkedinRegisterUploadResponse
	_, err = doJSON(ctx, s.client, models.PlatformLinkedin, apiRequest{
		Method:      http.MethodPost,
		URL:         s.cfg.APIURL + "/v2/assets?action=registerUpload",
		Body:        body,
		ContentType: "application/json",
		Headers:     s.headers(accessToken),
	}, linkedinMessage, &registered)
	if err != nil {
		return "", stepFailure(err, "image registration failed")
	}

	uploadURL := registered.Value.UploadMechanism.HTTPRequest.UploadURL
	asset := registered.Value.Asset
	if uploadURL == "" || asset == "" {
		return "", &PlatformError{
			Platform: models.PlatformLinkedin,
			Kind:     models.ErrorKindPlatformRejected,
			Message:  "image registration returned no upload url",
			Details:  registered,
		}
	}

	_, _, err = doRequest(ctx, s.client, models.PlatformLinkedin, apiRequest{
		Method:      http.MethodPut,
		URL:         uploadURL,
		Body:        bytes.NewReader(image.Data),
		ContentType: image.MimeType,
		Headers:     map[string]string{"Authorization": "Bearer " + accessToken},
	}, linkedinMessage)
	if err != nil {
		return "", partial(err, "image upload failed")
	}

	return asset, nil
}

func (s *linkedinService) EditPost(ctx context.Context, userID, postID string, content *models.PostContent) models.PostResponse {
	res := s.editPost(ctx, userID, postID, content)
	logFailure(models.PlatformLinkedin, "edit", res)
	return res
}

func (s *linkedinService) editPost(ctx context.Context, userID, postID string, content *models.PostContent) models.PostResponse {
	if content.IsEmpty() {
		return failure(ValidationError{Platform: models.PlatformLinkedin, Reason: "post has no text or attachments"}, "")
	}
	in, err := s.credentials(ctx, userID)
	if err != nil {
		return failure(err, "")
	}

	var patch transfer.LinkedinPatchRequest
	patch.Patch.Set.SpecificContent.ShareContent.ShareCommentary = transfer.LinkedinText{Text: content.Text}
	if content.Title != "" {
		patch.Patch.Set.SpecificContent.ShareContent.Title = &transfer.LinkedinText{Text: content.Title}
	}
	body, err := jsonBody(patch)
	if err != nil {
		return failure(err, "")
	}

	headers := s.headers(in.AccessToken)
	headers["X-Restli-Method"] = "PARTIAL_UPDATE"
	_, _, err = doRequest(ctx, s.client, models.PlatformLinkedin, apiRequest{
		Method:      http.MethodPost,
		URL:         s.cfg.APIURL + "/v2/ugcPosts/" + url.PathEscape(postID),
		Body:        body,
		ContentType: "application/json",
		Headers:     headers,
	}, linkedinMessage)
	if err != nil {
		return failure(err, "failed to edit post on linkedin")
	}
	return models.Succeeded(postID, linkedinPostURL(postID))
}

func (s *linkedinService) DeletePost(ctx context.Context, userID, postID string) models.PostResponse {
	res := s.deletePost(ctx, userID, postID)
	logFailure(models.PlatformLinkedin, "delete", res)
	return res
}

func (s *linkedinService) deletePost(ctx context.Context, userID, postID string) models.PostResponse {
	in, err := s.credentials(ctx, userID)
	if err != nil {
		return failure(err, "")
	}
	_, _, err = doRequest(ctx, s.client, models.PlatformLinkedin, apiRequest{
		Method:  http.MethodDelete,
		URL:     s.cfg.APIURL + "/v2/ugcPosts/" + url.PathEscape(postID),
		Headers: s.headers(in.AccessToken),
	}, linkedinMessage)
	if err != nil {
		return failure(err, "failed to delete post on linkedin")
	}
	return models.Succeeded(postID, "")
}

func linkedinPostURL(postID string) string {
	return "https://www.linkedin.com/feed/update/" + postID
}

// stepFailure prefixes the failing step to a platform error's message.
func stepFailure(err error, step string) error {
	pe, ok := err.(*PlatformError)
	if !ok {
		return fmt.Errorf("%s: %w", step, err)
	}
	out := *pe
	out.Message = step + ": " + pe.Message
	return &out
}

// partial marks a failure that happened after an earlier protocol step
// already had a side effect.
func partial(err error, step string) error {
	pe, ok := stepFailure(err, step).(*PlatformError)
	if !ok {
		return &PlatformError{
			Kind:    models.ErrorKindPartialProtocolFailure,
			Message: fmt.Sprintf("%s: %v", step, err),
		}
	}
	pe.Kind = models.ErrorKindPartialProtocolFailure
	return pe
}
