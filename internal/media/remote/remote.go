// Package remote calls a media storage service over HTTP. Calls go through a
// circuit breaker so an unavailable media service fails fast.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/media"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
	"github.com/N1kunj1998/ECOMMERCE/pkg/httpclient"
)

const serviceName = "media-service"

// Doer sends HTTP requests. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client implements media.Storage against the media service API.
type Client struct {
	baseURL string
	apiKey  string
	doer    Doer
}

// New creates a media service client.
func New(baseURL, apiKey string, doer Doer) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, doer: doer}
}

var _ media.Storage = (*Client)(nil)

type uploadRequest struct {
	Folder      string `json:"folder"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type uploadResponse struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Upload posts the image to the media service.
func (c *Client) Upload(ctx context.Context, folder string, data []byte, contentType string) (domain.Image, error) {
	body, err := json.Marshal(uploadRequest{
		Folder:      folder,
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return domain.Image{}, fmt.Errorf("marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/media", bytes.NewReader(body))
	if err != nil {
		return domain.Image{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return domain.Image{}, unavailable(err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return domain.Image{}, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Image{}, fmt.Errorf("decode upload response: %w", err)
	}
	if out.PublicID == "" || out.URL == "" {
		return domain.Image{}, fmt.Errorf("%s returned an incomplete upload response", serviceName)
	}
	return domain.Image{PublicID: out.PublicID, URL: out.URL}, nil
}

// Delete removes an image. 404 from the service is treated as success.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	endpoint := c.baseURL + "/api/v1/media/" + url.PathEscape(publicID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	c.authorize(req)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return unavailable(err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		_ = resp.Body.Close()
		return nil
	}
	return httpclient.ParseResponseError(resp, serviceName)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func unavailable(err error) error {
	if code := httpclient.StatusCode(err); code != 0 {
		return apperrors.ServiceUnavailable(fmt.Sprintf("%s is unavailable (status %d)", serviceName, code), err)
	}
	return apperrors.ServiceUnavailable(serviceName+" is unavailable", err)
}
