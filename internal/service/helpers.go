package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

const defaultHTTPTimeout = 30 * time.Second

func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// apiRequest describes one outbound platform call.
type apiRequest struct {
	Method      string
	URL         string
	Body        io.Reader
	ContentType string
	Headers     map[string]string
}

// messageExtractor pulls the human readable message out of an error body.
type messageExtractor func(body []byte) string

// doRequest executes req and returns the response body of a 2xx reply.
// Transport failures are transient; any other status is a platform rejection
// carrying the platform's own message and the decoded body as details.
func doRequest(ctx context.Context, client *http.Client, platform string, req apiRequest, extract messageExtractor) (*http.Response, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s request: %w", platform, err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, nil, &PlatformError{
			Platform: platform,
			Kind:     models.ErrorKindTransient,
			Message:  err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &PlatformError{
			Platform:   platform,
			Kind:       models.ErrorKindTransient,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("read response: %v", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := ""
		if extract != nil {
			message = extract(body)
		}
		if message == "" {
			message = fmt.Sprintf("unexpected response status: %d", resp.StatusCode)
		}
		return resp, body, &PlatformError{
			Platform:   platform,
			Kind:       models.ErrorKindPlatformRejected,
			StatusCode: resp.StatusCode,
			Message:    message,
			Details:    decodeDetails(body),
		}
	}

	return resp, body, nil
}

func doJSON(ctx context.Context, client *http.Client, platform string, req apiRequest, extract messageExtractor, out any) (*http.Response, error) {
	resp, body, err := doRequest(ctx, client, platform, req, extract)
	if err != nil {
		return resp, err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp, &PlatformError{
			Platform:   platform,
			Kind:       models.ErrorKindPlatformRejected,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decode response: %v", err),
			Details:    decodeDetails(body),
		}
	}
	return resp, nil
}

func jsonBody(v any) (io.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(raw), nil
}

// decodeDetails keeps a diagnostics payload for logs: JSON when the body
// parses, the raw text otherwise.
func decodeDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

func logFailure(platform, operation string, res models.PostResponse) {
	if res.Success {
		return
	}
	slog.Error("platform call failed",
		"platform", platform,
		"operation", operation,
		"kind", string(res.Kind),
		"error", res.Error,
	)
	if res.Details != nil {
		slog.Debug("platform failure details", "platform", platform, "operation", operation, "details", res.Details)
	}
}

// openIntegration returns a copy of in with plaintext tokens.
func openIntegration(in *models.Integration, secretKey string) (*models.Integration, error) {
	out := *in
	var err error
	if out.AccessToken, err = utils.DecryptToken(in.AccessToken, secretKey); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if out.RefreshToken, err = utils.DecryptToken(in.RefreshToken, secretKey); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return &out, nil
}

// sealIntegration returns a copy of in with encrypted tokens.
func sealIntegration(in *models.Integration, secretKey string) (*models.Integration, error) {
	out := *in
	var err error
	if out.AccessToken, err = utils.EncryptToken(in.AccessToken, secretKey); err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	if out.RefreshToken, err = utils.EncryptToken(in.RefreshToken, secretKey); err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return &out, nil
}

var errEmptyAccessToken = errors.New("access token missing")
