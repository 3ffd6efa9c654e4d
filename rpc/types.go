// Package rpc exposes ledger state via a JSON-RPC 2.0 HTTP endpoint.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the ledger error code (see core.ErrorCode) so clients
// can rebuild the original failure.
type ErrorData struct {
	LedgerCode string `json:"ledger_code"`
}

func (e *Error) Error() string {
	if e.Data != nil && e.Data.LedgerCode != "" {
		return fmt.Sprintf("rpc error %d (%s): %s", e.Code, e.Data.LedgerCode, e.Message)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32000
	CodeNotFound       = -32001
	CodeLedgerError    = -32002
	CodeTxRejected     = -32003
)

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

func okResponse(id, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return errResponse(id, CodeInternalError, "encode result: "+err.Error())
	}
	return Response{JSONRPC: "2.0", ID: id, Result: raw}
}
