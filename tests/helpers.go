package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	serviceAddr = "localhost:8080"
	apiURL      = "http://" + serviceAddr + "/api/v1"
	userToken   = "component-test-token"
)

type response struct {
	StatusCode int
	ErrorKind  string
	Body       []byte
}

func sendRequest(t *testing.T, method, path string, body any) response {
	t.Helper()

	resp, err := doRequest(method, path, body)
	require.NoError(t, err)
	return resp
}

// doRequest is sendRequest for goroutines other than the test one.
func doRequest(method, path string, body any) (response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return response{}, err
		}
	}

	httpReq, err := http.NewRequest(method, apiURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return response{}, err
	}

	httpReq.Header.Set("Correlation-ID", shortuuid.New())
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+userToken)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return response{}, err
	}

	return response{
		StatusCode: resp.StatusCode,
		ErrorKind:  resp.Header.Get("Error-Kind"),
		Body:       buf.Bytes(),
	}, nil
}

func decodeResponse[T any](t *testing.T, resp response) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(resp.Body, &out), string(resp.Body))
	return out
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get("http://" + serviceAddr + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		time.Second*10,
		time.Millisecond*50,
	)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
