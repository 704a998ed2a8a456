package backboard

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the service answers 404 for an assistant or
// thread.
var ErrNotFound = errors.New("backboard resource not found")

// APIError is any other non-2xx answer.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("backboard response status %d: %s", e.Status, body)
}
