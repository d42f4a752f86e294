//go:build integration
// +build integration

package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/pateli18/clinicontact/internal/auth"
	"github.com/pateli18/clinicontact/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL string
	logger  *observability.Logger
)

func init() {
	logger = observability.NewLogger()
	host := getEnv("TEST_API_HOST", "localhost")
	port := getEnv("TEST_API_PORT", "8080")
	baseURL = fmt.Sprintf("http://%s:%s", host, port)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// testAuthToken mints a token with the same secret the server under test
// runs with
func testAuthToken(t *testing.T) string {
	t.Helper()
	secret := getEnv("JWT_SECRET", "test-secret")
	token, err := auth.New(secret, logger).GenerateToken("integration-tests")
	require.NoError(t, err, "failed to mint test token")
	return token
}

// makeRequest performs an HTTP request and returns the response and body
func makeRequest(t *testing.T, method, path string, body interface{}, headers map[string]string) (*http.Response, []byte) {
	client := &http.Client{Timeout: 10 * time.Second}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	return resp, respBody
}

// makeAuthenticatedRequest performs an HTTP request with a bearer token
func makeAuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) (*http.Response, []byte) {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return makeRequest(t, method, path, body, headers)
}

// parseJSONResponse unmarshals JSON response into the provided interface
func parseJSONResponse(t *testing.T, body []byte, v interface{}) {
	err := json.Unmarshal(body, v)
	if err != nil {
		t.Fatalf("Failed to parse JSON response: %v, body: %s", err, string(body))
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, resp *http.Response, expected int) {
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// --- Response Wrapper ---

// APIResponse wraps an HTTP response for fluent assertions.
type APIResponse struct {
	t          *testing.T
	Response   *http.Response
	Body       []byte
	parsedJSON map[string]interface{}
}

// NewAPIResponse creates a new APIResponse wrapper.
func NewAPIResponse(t *testing.T, resp *http.Response, body []byte) *APIResponse {
	t.Helper()
	return &APIResponse{t: t, Response: resp, Body: body}
}

// RequireStatus asserts the response has the expected status code (fails test immediately if not).
func (r *APIResponse) RequireStatus(expected int) *APIResponse {
	r.t.Helper()
	require.Equal(r.t, expected, r.Response.StatusCode,
		"unexpected status code, body: %s", string(r.Body))
	return r
}

// AssertStatus asserts the response has the expected status code.
func (r *APIResponse) AssertStatus(expected int) *APIResponse {
	r.t.Helper()
	assert.Equal(r.t, expected, r.Response.StatusCode,
		"unexpected status code, body: %s", string(r.Body))
	return r
}

// JSON parses the response body as JSON and returns the parsed map.
func (r *APIResponse) JSON() map[string]interface{} {
	r.t.Helper()
	if r.parsedJSON == nil {
		r.parsedJSON = make(map[string]interface{})
		require.NoError(r.t, json.Unmarshal(r.Body, &r.parsedJSON),
			"failed to parse JSON response: %s", string(r.Body))
	}
	return r.parsedJSON
}

// AssertJSONField asserts a field exists and has the expected value.
func (r *APIResponse) AssertJSONField(field string, expected interface{}) *APIResponse {
	r.t.Helper()
	data := r.JSON()
	assert.Contains(r.t, data, field, "field %s not found in response", field)
	if expected != nil {
		assert.Equal(r.t, expected, data[field], "field %s has unexpected value", field)
	}
	return r
}

// AssertJSONFieldExists asserts a field exists (value can be anything).
func (r *APIResponse) AssertJSONFieldExists(field string) *APIResponse {
	r.t.Helper()
	data := r.JSON()
	assert.Contains(r.t, data, field, "field %s not found in response", field)
	return r
}

// AssertError asserts the response contains an error field.
func (r *APIResponse) AssertError() *APIResponse {
	r.t.Helper()
	data := r.JSON()
	assert.Contains(r.t, data, "error", "expected error field in response")
	return r
}

// --- Request Builder ---

// APIRequest helps build and execute API requests.
type APIRequest struct {
	t       *testing.T
	method  string
	path    string
	body    interface{}
	token   string
	headers map[string]string
}

// NewRequest creates a new API request builder.
func NewRequest(t *testing.T, method, path string) *APIRequest {
	t.Helper()
	return &APIRequest{
		t:       t,
		method:  method,
		path:    path,
		headers: make(map[string]string),
	}
}

// WithBody sets the request body.
func (r *APIRequest) WithBody(body interface{}) *APIRequest {
	r.body = body
	return r
}

// WithToken sets the authentication token.
func (r *APIRequest) WithToken(token string) *APIRequest {
	r.token = token
	return r
}

// Do executes the request and returns an APIResponse.
func (r *APIRequest) Do() *APIResponse {
	r.t.Helper()
	var resp *http.Response
	var body []byte

	if r.token != "" {
		resp, body = makeAuthenticatedRequest(r.t, r.method, r.path, r.body, r.token)
	} else {
		resp, body = makeRequest(r.t, r.method, r.path, r.body, r.headers)
	}

	return NewAPIResponse(r.t, resp, body)
}

// --- Convenience Functions ---

// GET creates a GET request.
func GET(t *testing.T, path string) *APIRequest {
	return NewRequest(t, http.MethodGet, path)
}

// POST creates a POST request.
func POST(t *testing.T, path string) *APIRequest {
	return NewRequest(t, http.MethodPost, path)
}
