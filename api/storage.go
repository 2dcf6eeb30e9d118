package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/eve-ticketing/tickets/entities"
)

type StorageServiceClient struct {
	client client
}

func NewStorageServiceClient(baseURL string, timeout time.Duration, editors ...RequestEditorFn) StorageServiceClient {
	return StorageServiceClient{client: newClient("storage", baseURL, timeout, editors...)}
}

type Upload struct {
	Entity      string
	EntityID    int64
	Field       string
	ContentType string
	// Update asks the storage service to replace the previous file of the
	// entity field itself.
	Update   bool
	Filename string
	Content  []byte
}

func (c StorageServiceClient) Upload(ctx context.Context, upload Upload) (entities.Document, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", upload.Filename)
	if err != nil {
		return entities.Document{}, fmt.Errorf("could not create multipart file: %w", err)
	}
	if _, err := part.Write(upload.Content); err != nil {
		return entities.Document{}, fmt.Errorf("could not write multipart file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return entities.Document{}, fmt.Errorf("could not close multipart writer: %w", err)
	}

	r := request{
		method: http.MethodPost,
		path:   "/firebase/upload",
		query: url.Values{
			"entity":       {upload.Entity},
			"id":           {strconv.FormatInt(upload.EntityID, 10)},
			"field":        {upload.Field},
			"content-type": {upload.ContentType},
			"update":       {strconv.FormatBool(upload.Update)},
		},
		body:        &buf,
		contentType: writer.FormDataContentType(),
		field:       "file",
		value:       upload.Filename,
	}

	body, err := c.client.do(ctx, r)
	if err != nil {
		return entities.Document{}, err
	}

	doc, err := decode[entities.Document](c.client, r, body)
	if err != nil {
		return entities.Document{}, err
	}
	if doc.IsZero() {
		return entities.Document{}, entities.NewDownstreamError(r.method, r.field, r.value, "storage service returned no link", nil)
	}

	return doc, nil
}

// Delete removes a stored file. Deleting a file that is already gone
// succeeds.
func (c StorageServiceClient) Delete(ctx context.Context, link string) error {
	_, err := c.client.do(ctx, request{
		method: http.MethodDelete,
		path:   "/firebase/delete",
		query:  url.Values{"link": {link}},
		field:  "link",
		value:  link,
	})
	if entities.IsNotFound(err) {
		return nil
	}
	return err
}
