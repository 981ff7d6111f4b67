package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/atinyakov/ReinsDesk/internal/models"
)

// ListProperties fetches one page. Both the paginated object and the bare
// array form of the endpoint are accepted; a bare array is treated as the
// complete collection.
func (c *Client) ListProperties(ctx context.Context, offset, limit int) (models.PropertyPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	raw, err := c.send(ctx, request{method: http.MethodGet, path: "/properties", query: q, authRequired: true})
	if err != nil {
		return models.PropertyPage{}, err
	}
	return decodePage(raw, limit)
}

func decodePage(raw []byte, limit int) (models.PropertyPage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return models.PropertyPage{}, fmt.Errorf("decode property list: %w", err)
		}
		props, err := models.DecodeProperties(items)
		if err != nil {
			return models.PropertyPage{}, err
		}
		done := false
		return models.PropertyPage{
			Properties: props,
			Total:      len(props),
			Count:      len(props),
			Limit:      len(props),
			HasMore:    &done,
		}, nil
	}

	var body struct {
		Properties []json.RawMessage `json:"properties"`
		Total      int               `json:"total"`
		Count      *int              `json:"count"`
		Offset     int               `json:"offset"`
		Limit      int               `json:"limit"`
		HasMore    *bool             `json:"hasMore"`
	}
	if err := decodeInto(raw, &body); err != nil {
		return models.PropertyPage{}, err
	}
	props, err := models.DecodeProperties(body.Properties)
	if err != nil {
		return models.PropertyPage{}, err
	}

	page := models.PropertyPage{
		Properties: props,
		Total:      body.Total,
		Count:      len(props),
		Offset:     body.Offset,
		Limit:      body.Limit,
		HasMore:    body.HasMore,
	}
	if body.Count != nil {
		page.Count = *body.Count
	}
	if page.Limit == 0 {
		page.Limit = limit
	}
	return page, nil
}

// GetProperty fetches one listing. The response may be {"property": {...}}
// or the bare property.
func (c *Client) GetProperty(ctx context.Context, id string) (models.Property, error) {
	raw, err := c.send(ctx, request{method: http.MethodGet, path: "/properties/" + url.PathEscape(id), authRequired: true})
	if err != nil {
		return models.Property{}, err
	}

	var wrapped struct {
		Property json.RawMessage `json:"property"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Property) > 0 && !bytes.Equal(wrapped.Property, []byte("null")) {
		return models.DecodeProperty(wrapped.Property)
	}
	return models.DecodeProperty(raw)
}

// DeleteProperty removes a listing on the backend.
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	_, err := c.send(ctx, request{method: http.MethodDelete, path: "/properties/" + url.PathEscape(id), authRequired: true})
	return err
}

// UploadFile is one file part of a property upload.
type UploadFile struct {
	// Field is the form field: "html", "floorplan" or "images".
	Field    string
	Filename string
	Content  io.Reader
}

// Upload is the multipart payload of CreateProperty.
type Upload struct {
	// Fields are flat property attributes keyed by their JSON names.
	Fields map[string]string
	Files  []UploadFile
}

// CreateProperty ingests a listing through the multipart endpoint.
func (c *Client) CreateProperty(ctx context.Context, up Upload) (models.Property, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(up.Fields))
	for k := range up.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, up.Fields[k]); err != nil {
			return models.Property{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for _, f := range up.Files {
		part, err := mw.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return models.Property{}, fmt.Errorf("create part %s: %w", f.Filename, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return models.Property{}, fmt.Errorf("copy %s: %w", f.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return models.Property{}, fmt.Errorf("close multipart: %w", err)
	}

	raw, err := c.send(ctx, request{
		method:       http.MethodPost,
		path:         "/properties",
		body:         &buf,
		contentType:  mw.FormDataContentType(),
		authRequired: true,
	})
	if err != nil {
		return models.Property{}, err
	}
	return models.DecodeProperty(raw)
}

// FileURL resolves a stored file reference against the file-serving base.
func (c *Client) FileURL(ref string) string {
	return models.FileURL(c.fileBase, ref)
}
