package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"chatbox/models"
)

type wireFile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// UploadFile sends one attachment as multipart form data and returns the
// descriptor the service assigned to it. Nothing is written to the message
// store here; a failed upload must leave no trace.
func (c *Client) UploadFile(ctx context.Context, filename, mimeType string, content io.Reader) (models.FileDescriptor, error) {
	if filename == "" {
		return models.FileDescriptor{}, fmt.Errorf("filename is required")
	}
	if content == nil {
		return models.FileDescriptor{}, fmt.Errorf("file content is required")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return models.FileDescriptor{}, fmt.Errorf("copy upload content: %w", err)
	}
	if mimeType != "" {
		if err := writer.WriteField("mimeType", mimeType); err != nil {
			return models.FileDescriptor{}, fmt.Errorf("write mime field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return models.FileDescriptor{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/upload", &body)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("POST /api/upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.FileDescriptor{}, fmt.Errorf("POST /api/upload: unexpected status %d", resp.StatusCode)
	}

	var wire wireFile
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return models.FileDescriptor{}, fmt.Errorf("decode upload response: %w", err)
	}

	return models.FileDescriptor{
		Name:     wire.Name,
		URL:      wire.URL,
		Size:     wire.Size,
		MimeType: wire.MimeType,
	}, nil
}
