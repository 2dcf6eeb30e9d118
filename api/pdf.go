package api

import (
	"context"
	"net/http"
	"time"
)

const TicketPdfTemplate = "ticketpdf"

type PdfServiceClient struct {
	client client
}

func NewPdfServiceClient(baseURL string, timeout time.Duration, editors ...RequestEditorFn) PdfServiceClient {
	return PdfServiceClient{client: newClient("pdf", baseURL, timeout, editors...)}
}

type pdfRequest struct {
	TemplateName string         `json:"template_name"`
	Data         map[string]any `json:"data"`
}

// Create renders the template and returns the raw PDF bytes.
func (c PdfServiceClient) Create(ctx context.Context, template string, data map[string]any) ([]byte, error) {
	return c.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/pdf/create",
		json:   pdfRequest{TemplateName: template, Data: data},
		field:  "template_name",
		value:  template,
	})
}
