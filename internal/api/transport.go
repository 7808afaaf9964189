package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Response is what a transport hands back. For GraphQL, Data is the "data"
// object and Errors the "errors" array; for REST, Data is the whole body.
type Response struct {
	Data   json.RawMessage
	Errors GraphQLErrors
}

// Transport executes one operation against the backend.
type Transport interface {
	Execute(ctx context.Context, op *Operation, vars Vars) (*Response, error)
}

// HTTPTransport speaks GraphQL over a single endpoint and REST for the
// organization resource.
type HTTPTransport struct {
	Endpoint   string // GraphQL endpoint
	BackendURL string // base URL for REST paths
	Client     *http.Client
}

// NewHTTPTransport creates a transport. A zero timeout means requests are
// never cut short by the client.
func NewHTTPTransport(endpoint, backendURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		Endpoint:   endpoint,
		BackendURL: strings.TrimRight(backendURL, "/"),
		Client:     &http.Client{Timeout: timeout},
	}
}

type graphQLRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
	Variables     Vars   `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors"`
}

// Execute implements Transport.
func (t *HTTPTransport) Execute(ctx context.Context, op *Operation, vars Vars) (*Response, error) {
	requestID := uuid.NewString()
	start := time.Now()

	var (
		resp *Response
		err  error
	)
	if op.Kind == KindREST {
		resp, err = t.executeREST(ctx, op, vars, requestID)
	} else {
		resp, err = t.executeGraphQL(ctx, op, vars, requestID)
	}

	if err != nil {
		log.Printf("api: %s [%s] failed after %s: %v", op.Name, requestID, time.Since(start), err)
		return nil, err
	}
	log.Printf("api: %s [%s] completed in %s", op.Name, requestID, time.Since(start))
	return resp, nil
}

func (t *HTTPTransport) executeGraphQL(ctx context.Context, op *Operation, vars Vars, requestID string) (*Response, error) {
	body, err := json.Marshal(graphQLRequest{
		Query:         op.Document,
		OperationName: op.Name,
		Variables:     vars,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	httpResp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var gr graphQLResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		if httpResp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", httpResp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	// GraphQL servers may answer 4xx with a well-formed errors array.
	if httpResp.StatusCode >= 300 && len(gr.Errors) == 0 {
		return nil, fmt.Errorf("unexpected status %d", httpResp.StatusCode)
	}
	return &Response{Data: gr.Data, Errors: gr.Errors}, nil
}

func (t *HTTPTransport) executeREST(ctx context.Context, op *Operation, vars Vars, requestID string) (*Response, error) {
	var body io.Reader
	if op.Method != http.MethodGet && vars != nil {
		b, err := json.Marshal(vars)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, t.BackendURL+op.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	httpResp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The REST envelope always carries "success"; error statuses with a
	// decodable envelope are interpreted by the client, not here.
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Success == nil {
		if httpResp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", httpResp.StatusCode)
		}
		return nil, fmt.Errorf("response is not a success envelope")
	}
	return &Response{Data: raw}, nil
}

func (t *HTTPTransport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}
