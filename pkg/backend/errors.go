package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// RemoteError reports a non-success response from a service group. Detail
// carries the server's own explanation when the body provided one.
type RemoteError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
}

// HTTPStatusCode exposes the remote status for retry and mapping decisions.
func (e *RemoteError) HTTPStatusCode() int {
	return e.StatusCode
}

// decodeRemoteError extracts the server's detail message from an error
// response body. The body is always drained and closed.
func decodeRemoteError(op string, resp *http.Response) *RemoteError {
	defer resp.Body.Close()

	remoteErr := &RemoteError{Op: op, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		return remoteErr
	}

	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case strings.TrimSpace(payload.Detail) != "":
			remoteErr.Detail = strings.TrimSpace(payload.Detail)
		case strings.TrimSpace(payload.Message) != "":
			remoteErr.Detail = strings.TrimSpace(payload.Message)
		}
	}

	return remoteErr
}

func isRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// jitterBackoff returns an exponential delay with 20% jitter.
func jitterBackoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt-1)) * 250 * time.Millisecond
	if base > 2*time.Second {
		base = 2 * time.Second
	}

	delta := 0.2 * base.Seconds()
	low := base.Seconds() - delta
	value := low + rand.Float64()*(2*delta)
	return time.Duration(value * float64(time.Second))
}
