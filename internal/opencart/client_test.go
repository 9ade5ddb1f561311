package opencart

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/opencart-qa/internal/model"
)

func newTestClient(t *testing.T, srv *httptest.Server, base string) *Client {
	t.Helper()
	c, err := NewClient(
		model.RestAPIConfig{BaseURL: srv.URL + base, TimeoutSec: 5},
		model.ContentTypeConfig{JSON: "application/json", FormData: "application/x-www-form-urlencoded"},
		&model.Endpoints{
			Post: map[string]string{"login_url": "login", "register_url": "register"},
			Put:  map[string]string{"set_password_url": "setpassword"},
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAbsoluteBaseURL(t *testing.T) {
	_, err := NewClient(model.RestAPIConfig{}, model.ContentTypeConfig{}, nil, nil)
	assert.Error(t, err)

	_, err = NewClient(model.RestAPIConfig{BaseURL: "/api/"}, model.ContentTypeConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestURLJoin(t *testing.T) {
	c, err := NewClient(model.RestAPIConfig{BaseURL: "https://shop.example.com/api/"}, model.ContentTypeConfig{}, nil, nil)
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
	}{
		{path: "login", want: "https://shop.example.com/api/login"},
		{path: "/login", want: "https://shop.example.com/login"},
		{path: "users?page=2", want: "https://shop.example.com/api/users?page=2"},
		{path: "https://other.example.com/setpassword/abc", want: "https://other.example.com/setpassword/abc"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, err := c.URL(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body credentialsPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.UserName != "qa@example.com" || body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-123"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/api/")

	token, err := c.Login(context.Background(), "qa@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	_, err = c.Login(context.Background(), "qa@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestPostFormAndAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/form":
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "qa@example.com", r.PostForm.Get("user_name"))
			assert.Equal(t, "secret", r.PostForm.Get("password"))
		case "/profile":
			assert.Equal(t, "tok-123", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"user_name":"qa@example.com"}`))
			return
		case "/users":
			assert.Equal(t, "tok-123", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/")
	ctx := context.Background()

	resp, err := c.PostForm(ctx, "form", "qa@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = c.GetWithAuth(ctx, "profile", "tok-123")
	require.NoError(t, err)
	var profile map[string]string
	require.NoError(t, resp.JSON(&profile))
	assert.Equal(t, "qa@example.com", profile["user_name"])

	resp, err = c.PostWithAuth(ctx, "users", "new@example.com", "pw", "tok-123")
	require.NoError(t, err)
	assert.True(t, resp.OK())
}

func TestSetPassword(t *testing.T) {
	var message atomic.Value
	message.Store(PasswordUpdatedMessage)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body passwordPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "N3w!pass", body.Password)
		_ = json.NewEncoder(w).Encode(messageResponse{Message: message.Load().(string)})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/")
	link := srv.URL + "/imetanic/setpassword/abc123"

	require.NoError(t, c.SetPassword(context.Background(), link, "N3w!pass"))

	message.Store("link expired")
	err := c.SetPassword(context.Background(), link, "N3w!pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link expired")
}

func TestUpdateEmailAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register", r.URL.Path)
		var body emailUpdatePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.OldEmailAddress == "missing@example.com" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"user not found"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/")

	require.NoError(t, c.UpdateEmailAddress(context.Background(), "old@example.com", "new@example.com"))

	err := c.UpdateEmailAddress(context.Background(), "missing@example.com", "new@example.com")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "user not found", apiErr.Message)
}

func TestIsLinkActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/expired" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/")

	active, err := c.IsLinkActive(context.Background(), srv.URL+"/live")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = c.IsLinkActive(context.Background(), srv.URL+"/expired")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRetriesOnTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Desktops"}`, string(body))
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/")

	resp, err := c.PostJSON(context.Background(), "categories", map[string]string{"name": "Desktops"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.JSONEq(t, `{"id":7}`, string(resp.Body))
}

func TestRetriesExhaustedReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "/")

	resp, err := c.Get(context.Background(), "products")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (3) exceeded")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Equal(t, int32(4), calls.Load())

	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.JSONEq(t, `{"error":"slow down"}`, string(resp.Body))
}

func TestMissingEndpoint(t *testing.T) {
	c, err := NewClient(model.RestAPIConfig{BaseURL: "https://shop.example.com/"}, model.ContentTypeConfig{}, nil, nil)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "qa@example.com", "secret")
	assert.True(t, model.IsMissingEndpoint(err))
}
