package opencart

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// PasswordUpdatedMessage is the message the API returns after a
// successful set-password call.
const PasswordUpdatedMessage = "data updated successfully"

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// credentialsPayload is the body of login and authenticated posts.
type credentialsPayload struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// passwordPayload is the body of a set-password call.
type passwordPayload struct {
	Password string `json:"password"`
}

// emailUpdatePayload is the body of an email address change.
type emailUpdatePayload struct {
	OldEmailAddress string `json:"old_email_address"`
	NewEmailAddress string `json:"new_email_address"`
}

// loginResponse is the body returned by the login endpoint.
type loginResponse struct {
	Token string `json:"token"`
}

// messageResponse is the generic {"message": ..., "error": ...} body.
type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	Method     string
	URL        string
	StatusCode int

	// Message is the "error" or "message" field of a JSON body, or the raw
	// body when it is not JSON.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("opencart API error (%d) on %s %s: %s", e.StatusCode, e.Method, e.URL, e.Message)
}

// IsAPIError reports whether err (or any error in its chain) is an
// APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// StatusCode returns the HTTP status carried by an APIError in err's
// chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newAPIError(method, url string, status int, body []byte) *APIError {
	msg := string(body)
	var m messageResponse
	if json.Unmarshal(body, &m) == nil {
		switch {
		case m.Error != "":
			msg = m.Error
		case m.Message != "":
			msg = m.Message
		}
	}
	return &APIError{Method: method, URL: url, StatusCode: status, Message: msg}
}
