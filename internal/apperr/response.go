package apperr

import (
	"os"
	"sync"
	"time"
)

// Details is the errorDetails section of an error response body.
type Details struct {
	Hostname  string `json:"hostname"`
	ErrorCode string `json:"errorCode"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Body is the JSON document returned for every failed request.
type Body struct {
	StatusCode   int     `json:"statusCode"`
	ErrorDetails Details `json:"errorDetails"`
}

var (
	hostnameOnce sync.Once
	hostname     string
)

func localHostname() string {
	hostnameOnce.Do(func() {
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "unknown"
		}
		hostname = name
	})
	return hostname
}

// NewBody renders e for a request to path at the given time. Causes are never
// included in the message.
func NewBody(e *Error, path string, at time.Time) Body {
	return Body{
		StatusCode: e.Status(),
		ErrorDetails: Details{
			Hostname:  localHostname(),
			ErrorCode: e.Code,
			Path:      path,
			Timestamp: at.UTC().Format(time.RFC3339),
			Message:   e.Message,
		},
	}
}
