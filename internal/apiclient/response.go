package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// bearer is the access token the request was sent with, empty if none was attached
	bearer string
	// external is set when the target host never receives the bearer token
	external bool
}

// Decode unmarshals the JSON body into target. An empty body leaves target untouched.
func (r *Response) Decode(target any) error {
	if len(r.Body) == 0 || target == nil {
		return nil
	}
	err := json.Unmarshal(r.Body, target)
	if err != nil {
		return fmt.Errorf("cannot decode the response body: %w", err)
	}
	return nil
}

func (r *Response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// APIError is returned for every non-2xx response. Payload holds the raw JSON error body when there is one.
type APIError struct {
	StatusCode int
	Message    string
	Payload    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

func (r *Response) apiError() *APIError {
	output := &APIError{StatusCode: r.StatusCode}
	if len(r.Body) > 0 && json.Valid(r.Body) {
		output.Payload = json.RawMessage(r.Body)
		body := struct {
			Message string `json:"message"`
		}{}
		if json.Unmarshal(r.Body, &body) == nil {
			output.Message = body.Message
		}
	}
	if output.Message == "" {
		output.Message = http.StatusText(r.StatusCode)
	}
	if output.Message == "" {
		output.Message = "something went wrong"
	}
	return output
}
