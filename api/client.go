package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/eve-ticketing/tickets/metrics"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrorKindHeader carries the entities.ErrorKind of an error response so
// callers get back the same kind the remote service raised.
const ErrorKindHeader = "Error-Kind"

type RequestEditorFn func(ctx context.Context, req *http.Request) error

func WithCorrelationID(ctx context.Context, req *http.Request) error {
	if correlationID := log.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set("Correlation-ID", correlationID)
	}
	return nil
}

type client struct {
	service string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	editors []RequestEditorFn
}

func newClient(service, baseURL string, timeout time.Duration, editors ...RequestEditorFn) client {
	if baseURL == "" {
		panic(fmt.Sprintf("%s client: base url is empty", service))
	}

	return client{
		service: service,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    service,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.FromContext(context.Background()).
					WithField("service", name).
					Warnf("Circuit breaker changed state from %s to %s", from, to)
			},
		}),
		editors: append([]RequestEditorFn{WithCorrelationID}, editors...),
	}
}

type request struct {
	method string
	path   string
	query  url.Values

	// json is marshalled as the body unless body is set
	json        any
	body        io.Reader
	contentType string

	// field and value describe the request in a returned *entities.Error
	field string
	value any
}

type response struct {
	status int
	kind   string
	body   []byte
}

func (c client) do(ctx context.Context, r request) ([]byte, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read response body: %w", err)
		}

		out := response{
			status: resp.StatusCode,
			kind:   resp.Header.Get(ErrorKindHeader),
			body:   body,
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// counted as a failure by the breaker, decoded below
			return out, fmt.Errorf("%s responded with status %d", c.service, resp.StatusCode)
		}
		return out, nil
	})

	resp, _ := res.(response)
	metrics.TrackDownstream(c.service, strconv.Itoa(resp.status), time.Since(start))

	if resp.status == 0 {
		if err == nil {
			err = errors.New("empty response")
		}
		return nil, entities.NewDownstreamError(r.method, r.field, r.value, c.service+" service is unavailable", err)
	}
	if resp.status >= http.StatusBadRequest {
		return nil, c.decodeError(r, resp)
	}

	return resp.body, nil
}

func (c client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	body := r.body
	contentType := r.contentType
	if body == nil && r.json != nil {
		payload, err := json.Marshal(r.json)
		if err != nil {
			return nil, fmt.Errorf("could not marshal %s request: %w", c.service, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("could not create %s request: %w", c.service, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for _, edit := range c.editors {
		if err := edit(ctx, req); err != nil {
			return nil, fmt.Errorf("could not edit %s request: %w", c.service, err)
		}
	}

	return req, nil
}

// decodeError turns an error response into *entities.Error. Responses that
// carry the error payload keep their kind, anything else is Downstream.
func (c client) decodeError(r request, resp response) error {
	cause := fmt.Errorf("%s %s responded with status %d", r.method, r.path, resp.status)

	var payload entities.Error
	if err := json.Unmarshal(resp.body, &payload); err != nil || payload.Description == "" {
		return entities.NewDownstreamError(
			r.method, r.field, r.value,
			fmt.Sprintf("%s service responded with status %d", c.service, resp.status),
			cause,
		)
	}

	payload.Err = cause
	payload.Kind = entities.ParseErrorKind(resp.kind)
	if payload.Kind == entities.KindUnknown || resp.status >= http.StatusInternalServerError {
		payload.Kind = kindFromStatus(resp.status)
	}

	return &payload
}

func kindFromStatus(status int) entities.ErrorKind {
	switch status {
	case http.StatusNotFound:
		return entities.KindNotFound
	case http.StatusConflict:
		return entities.KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return entities.KindValidation
	default:
		return entities.KindDownstream
	}
}

func decode[T any](c client, r request, body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, entities.NewDownstreamError(r.method, r.field, r.value, "malformed "+c.service+" service response", err)
	}
	return out, nil
}
