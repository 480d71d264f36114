package httpx

import (
	"fmt"
	"net/http"
)

// HTTPError represents a response with a status of 400 or above.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	body := e.Body
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, string(body))
}
