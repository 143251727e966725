package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"newsflow/backend/internal/models"
)

// APIError is a non-2xx response decoded from the error envelope
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("newsflow: status %d", e.StatusCode)
	}
	return fmt.Sprintf("newsflow: status %d: %s", e.StatusCode, e.Message)
}

// File is one part of an upload
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Client talks to the NewsFlow HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. A nil httpClient gets a 60s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ListStories fetches every story with its partitioned messages
func (c *Client) ListStories(ctx context.Context) ([]models.Story, error) {
	var stories []models.Story
	if err := c.doJSON(ctx, http.MethodGet, "/api/stories", nil, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// CreateStory creates a story
func (c *Client) CreateStory(ctx context.Context, title string, participants []string) (*models.Story, error) {
	var story models.Story
	req := models.CreateStoryRequest{Title: title, Participants: participants}
	if err := c.doJSON(ctx, http.MethodPost, "/api/stories", req, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

// DeleteStory removes a story and everything in it
func (c *Client) DeleteStory(ctx context.Context, storyID string) error {
	path := "/api/stories?storyId=" + url.QueryEscape(storyID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// CreateMessage posts a message, returning it and the assistant's reply if any
func (c *Client) CreateMessage(ctx context.Context, storyID string, req models.CreateMessageRequest) (*models.CreateMessageResponse, error) {
	var resp models.CreateMessageResponse
	path := "/api/stories/" + url.PathEscape(storyID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkRead archives a message
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	path := "/api/messages/" + url.PathEscape(messageID) + "/read"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// Upload stores files and returns their metadata in input order
func (c *Client) Upload(ctx context.Context, files ...File) ([]models.UploadedFile, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(f.Name)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out struct {
		Files []models.UploadedFile `json:"files"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// DeleteUpload removes an uploaded file that no message references
func (c *Client) DeleteUpload(ctx context.Context, filename string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/upload/"+url.PathEscape(filename), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		envelope.Error = apiErr
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
