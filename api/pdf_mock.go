package api

import (
	"context"
	"sync"
)

type PdfServiceClientMock struct {
	mock sync.Mutex

	Err      error
	Rendered []map[string]any
}

func (c *PdfServiceClientMock) Create(ctx context.Context, template string, data map[string]any) ([]byte, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	c.Rendered = append(c.Rendered, data)

	return []byte("%PDF-1.4 " + template), nil
}
