package roboflow

import "fmt"

// RemoteServiceError is returned when the hosted model answers with anything
// other than 200 OK, or with a body that is not a detection result.
type RemoteServiceError struct {
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("Roboflow API error (status %d): %s", e.StatusCode, e.Body)
}

// TransportError is returned when no response could be obtained at all:
// timeouts, refused connections, cancelled requests.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Roboflow request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
