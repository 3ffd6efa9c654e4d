package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tolelom/skillbloom/rpc"
)

// Transport performs one JSON-RPC call and decodes the result into out.
// Server-side errors are returned as *rpc.Error.
type Transport interface {
	Call(ctx context.Context, method string, params, out any) error
}

// HTTPTransport is a Transport speaking JSON-RPC 2.0 over HTTP POST.
type HTTPTransport struct {
	url       string
	authToken string
	http      *http.Client
	nextID    atomic.Int64
}

// NewHTTPTransport creates a transport for the node at url. authToken may be
// empty.
func NewHTTPTransport(url, authToken string) *HTTPTransport {
	return &HTTPTransport{
		url:       url,
		authToken: authToken,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Call implements Transport.
func (t *HTTPTransport) Call(ctx context.Context, method string, params, out any) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s params: %w", method, err)
	}
	body, err := json.Marshal(rpc.Request{
		JSONRPC: "2.0",
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.authToken)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %s", method, resp.Status)
	}

	var rpcResp rpc.Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
