package httputil

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// ReadResponseBody reads the response body to completion. A mid-body
// transport failure surfaces as an error so callers never mistake a
// truncated body for the real payload.
func ReadResponseBody(resp *http.Response) ([]byte, error) {
	respBody, err := io.ReadAll(resp.Body)
	if nil != err {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return respBody, nil
}

// IsTokenExpiredResponse reports whether a 401 response body carries the
// catalog's access-token-expired error shape.
func IsTokenExpiredResponse(b []byte) (bool, error) {
	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &body); nil != err {
		return false, fmt.Errorf("failed to decode 401 status code response body: %v", err)
	}

	return body.Error.Status == 401 && body.Error.Message == "The access token expired", nil
}

// IsTokenInvalidResponse reports whether a 401 response body carries the
// invalid-token error shape issued for revoked or malformed tokens.
func IsTokenInvalidResponse(b []byte) (bool, error) {
	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &body); nil != err {
		return false, fmt.Errorf("failed to decode 401 status code response body: %v", err)
	}

	return body.Error.Status == 401 && body.Error.Message == "Invalid access token", nil
}
