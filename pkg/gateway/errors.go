package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
)

// ErrUnauthorized is returned when the caller did not present the shared token
var ErrUnauthorized = errors.New("unauthorized")

// UnknownServiceError is returned when the first path segment names no service
type UnknownServiceError struct {
	Name      string
	Available []string
}

func (e *UnknownServiceError) Error() string {
	return "Unknown service: " + e.Name
}

// ServiceUnavailableError is returned when a known service has no credential configured
type ServiceUnavailableError struct {
	Service    string
	Credential string
}

func (e *ServiceUnavailableError) Error() string {
	return e.Credential + " not configured in CF secrets"
}

// UpstreamError wraps a transport-level failure reaching the upstream
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return "Upstream fetch failed: " + e.Detail()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Detail is the failure message without the request URL prefix added by net/http
func (e *UpstreamError) Detail() string {
	var urlErr *url.Error
	if errors.As(e.Err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return e.Err.Error()
}

// StatusCode maps a gateway error to the HTTP status returned to the caller
func StatusCode(err error) int {
	var (
		unknown     *UnknownServiceError
		unavailable *ServiceUnavailableError
		upstream    *UpstreamError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type messageBody struct {
	Error string `json:"error"`
}

type unknownServiceBody struct {
	Error     string   `json:"error"`
	Available []string `json:"available"`
}

type upstreamBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// errorBody builds the JSON envelope for err
func errorBody(err error) interface{} {
	var (
		unknown  *UnknownServiceError
		upstream *UpstreamError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return messageBody{Error: "Unauthorized"}
	case errors.As(err, &unknown):
		available := unknown.Available
		if available == nil {
			available = []string{}
		}
		return unknownServiceBody{Error: unknown.Error(), Available: available}
	case errors.As(err, &upstream):
		return upstreamBody{Error: "Upstream fetch failed", Detail: upstream.Detail()}
	default:
		return messageBody{Error: err.Error()}
	}
}

// writeError writes err as a fresh JSON response
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusCode(err), errorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
