package kanboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

// ErrOperationFailed is matched (errors.Is) by every OperationError.
var ErrOperationFailed = errors.New("kanboard: operation failed")

// OperationError is returned when Kanboard answers a call with a `false`
// result instead of an identifier.
type OperationError struct {
	Method string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("kanboard: %s reported failure", e.Method)
}

// Unwrap lets errors.Is(err, ErrOperationFailed) match.
func (e *OperationError) Unwrap() error {
	return ErrOperationFailed
}

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("kanboard: rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is returned for non-2xx transport responses.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("kanboard: http status %d: %s", e.Status, e.Body)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	ID      int64       `json:"id"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

var requestSeq int64

// call performs one JSON-RPC request and returns the raw result.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      atomic.AddInt64(&requestSeq, 1),
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("kanboard: encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kanboard: build request %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kanboard: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("kanboard: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// callID performs a call whose result is a new identifier or `false`.
func (c *Client) callID(ctx context.Context, method string, params interface{}) (int, error) {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return 0, err
	}
	return decodeID(method, raw)
}

// callOK performs a call whose result is a boolean.
func (c *Client) callOK(ctx context.Context, method string, params interface{}) error {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	return decodeOK(method, raw)
}

// decodeID is the single place where Kanboard's failure sentinel is
// recognised for identifier-returning calls.
func decodeID(method string, raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false":
		return 0, &OperationError{Method: method}
	}
	s = strings.Trim(s, `"`)
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("kanboard: %s returned unexpected result %s", method, string(raw))
	}
	if id <= 0 {
		return 0, &OperationError{Method: method}
	}
	return id, nil
}

func decodeOK(method string, raw json.RawMessage) error {
	switch strings.TrimSpace(string(raw)) {
	case "true":
		return nil
	case "", "null", "false":
		return &OperationError{Method: method}
	default:
		return fmt.Errorf("kanboard: %s returned unexpected result %s", method, string(raw))
	}
}

// flexInt decodes integers Kanboard sometimes sends as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("kanboard: invalid integer %s", string(b))
	}
	*f = flexInt(n)
	return nil
}
