package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"resumechat/loader"
	"resumechat/types"
)

// DoclingConverter sends the artifact to a Docling-compatible conversion
// service and uses the returned markdown as document text.
type DoclingConverter struct {
	url    string
	client *http.Client
}

func NewDoclingConverter(url string, client *http.Client) *DoclingConverter {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &DoclingConverter{url: url, client: client}
}

func (d *DoclingConverter) Convert(ctx context.Context, name string, data []byte) (loader.Text, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", name)
	if err != nil {
		return loader.Text{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return loader.Text{}, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return loader.Text{}, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, &buf)
	if err != nil {
		return loader.Text{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return loader.Text{}, fmt.Errorf("failed to call docling: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return loader.Text{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return loader.Text{}, fmt.Errorf("docling API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var dr types.DoclingResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return loader.Text{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	md := strings.TrimSpace(dr.Document.MdContent)
	if md == "" {
		return loader.Text{}, errors.New("docling returned no content")
	}
	return loader.Text{Content: md}, nil
}
