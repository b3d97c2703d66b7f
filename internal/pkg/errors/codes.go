package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Gateway errors (2000-2999)
	ErrGatewayConfig    = 2000 // missing API key or invalid client configuration
	ErrGatewayUpstream  = 2001 // upstream returned a non-retriable HTTP error
	ErrGatewayExhausted = 2002 // retries exhausted on a transient failure
	ErrGatewayStream    = 2003 // malformed stream data

	// Catalog errors (3000-3999)
	ErrCatalogInvalid    = 3000 // spec failed validation
	ErrCatalogNoEligible = 3001 // selection found no eligible model
	ErrCatalogStorage    = 3002 // persistence failure

	// Content errors (4000-4999)
	ErrContentUnsupported = 4000 // unsupported remote attachment type
	ErrContentUnreadable  = 4001 // attachment could not be read
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	ErrGatewayConfig:    {ErrGatewayConfig, http.StatusInternalServerError, "Gateway client is not configured"},
	ErrGatewayUpstream:  {ErrGatewayUpstream, http.StatusBadGateway, "Upstream request failed"},
	ErrGatewayExhausted: {ErrGatewayExhausted, http.StatusServiceUnavailable, "Upstream unavailable after retries"},
	ErrGatewayStream:    {ErrGatewayStream, http.StatusBadGateway, "Malformed upstream stream"},

	ErrCatalogInvalid:    {ErrCatalogInvalid, http.StatusBadRequest, "Invalid model catalog"},
	ErrCatalogNoEligible: {ErrCatalogNoEligible, http.StatusUnprocessableEntity, "No eligible model"},
	ErrCatalogStorage:    {ErrCatalogStorage, http.StatusInternalServerError, "Model catalog storage failed"},

	ErrContentUnsupported: {ErrContentUnsupported, http.StatusBadRequest, "Unsupported attachment"},
	ErrContentUnreadable:  {ErrContentUnreadable, http.StatusBadRequest, "Attachment could not be read"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
