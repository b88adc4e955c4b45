// Package api is the HTTP client the voicenote CLI uses to talk to the
// voicetribe server.
package api

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zanzhit/voicetribe/internal/domain/models"
	uploadservice "github.com/zanzhit/voicetribe/internal/services/upload"
)

// Error is a non-2xx reply from the server.
type Error struct {
	Status    int    `json:"-"`
	Message   string `json:"error"`
	RequestID string `json:"request_id"`
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("server returned %d: %s (request %s)", e.Status, e.Message, e.RequestID)
	}

	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	client *resty.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}

	return &Client{client: c}
}

func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}

	err := c.do(c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out), "POST", "/auth/register")

	return out.ID, err
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}

	err := c.do(c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out), "POST", "/auth/login")

	return out.Token, err
}

// CreateRecording uploads captured audio as a new recording.
func (c *Client) CreateRecording(ctx context.Context, blob models.Blob, title string) (models.Recording, error) {
	var out models.Recording

	form := map[string]string{
		"duration": strconv.FormatFloat(blob.Duration.Seconds(), 'f', 3, 64),
	}
	if title != "" {
		form["title"] = title
	}

	err := c.do(c.client.R().
		SetContext(ctx).
		SetMultipartField("audio", "recording"+uploadservice.Extension(blob.MimeType), blob.MimeType, bytes.NewReader(blob.Data)).
		SetFormData(form).
		SetResult(&out), "POST", "/recordings")

	return out, err
}

func (c *Client) Synthesize(ctx context.Context, text string) (models.Recording, error) {
	var out models.Recording

	err := c.do(c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		SetResult(&out), "POST", "/recordings/synthesize")

	return out, err
}

func (c *Client) List(ctx context.Context, filter models.ListFilter) (models.RecordingList, error) {
	var out models.RecordingList

	req := c.client.R().SetContext(ctx).SetResult(&out)
	if filter.Sort != "" {
		req.SetQueryParam("sort", string(filter.Sort))
	}
	if filter.Tag != "" {
		req.SetQueryParam("tag", filter.Tag)
	}

	err := c.do(req, "GET", "/recordings")

	return out, err
}

func (c *Client) Recording(ctx context.Context, id string) (models.Recording, error) {
	var out models.Recording

	err := c.do(c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out), "GET", "/recordings/{id}")

	return out, err
}

func (c *Client) Transcribe(ctx context.Context, id string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}

	err := c.do(c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out), "POST", "/recordings/{id}/transcribe")

	return out.Text, err
}

func (c *Client) TranscribePending(ctx context.Context) ([]models.TranscriptionOutcome, error) {
	var out struct {
		Results []models.TranscriptionOutcome `json:"results"`
	}

	err := c.do(c.client.R().
		SetContext(ctx).
		SetResult(&out), "POST", "/transcriptions/pending")

	return out.Results, err
}

func (c *Client) Summarize(ctx context.Context, id string) (models.Summary, error) {
	var out models.Summary

	err := c.do(c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out), "POST", "/recordings/{id}/summary")

	return out, err
}

func (c *Client) Share(ctx context.Context, id, email string) (models.ShareResult, error) {
	var out models.ShareResult

	err := c.do(c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(map[string]string{"email": email}).
		SetResult(&out), "POST", "/recordings/{id}/shares")

	return out, err
}

func (c *Client) do(req *resty.Request, method, path string) error {
	apiErr := &Error{}
	req.SetError(apiErr)

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = resp.Status()
		}

		return apiErr
	}

	return nil
}
