package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/eve-ticketing/tickets/entities"
)

type StorageServiceClientMock struct {
	mock sync.Mutex

	UploadErr error
	DeleteErr error

	// CurrentLink returns the link stored in the entity field. Like the
	// storage service, an upload for an existing entity (EntityID set)
	// deletes that file first.
	CurrentLink func(entity string, id int64, field string) string

	// Files holds every stored file by its link.
	Files   map[string][]byte
	Deleted []string
	uploads int
}

func NewStorageServiceClientMock() *StorageServiceClientMock {
	return &StorageServiceClientMock{Files: map[string][]byte{}}
}

func (c *StorageServiceClientMock) Upload(ctx context.Context, upload Upload) (entities.Document, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.UploadErr != nil {
		return entities.Document{}, c.UploadErr
	}

	if upload.EntityID != 0 && c.CurrentLink != nil {
		if previous := c.CurrentLink(upload.Entity, upload.EntityID, upload.Field); previous != "" {
			delete(c.Files, previous)
			c.Deleted = append(c.Deleted, previous)
		}
	}

	c.uploads++
	link := fmt.Sprintf("https://storage.test/%s/%d/%s?v=%d", upload.Entity, upload.EntityID, upload.Filename, c.uploads)
	c.Files[link] = upload.Content

	return entities.Document{Filename: upload.Filename, Link: link}, nil
}

func (c *StorageServiceClientMock) Delete(ctx context.Context, link string) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	delete(c.Files, link)
	c.Deleted = append(c.Deleted, link)

	return nil
}
