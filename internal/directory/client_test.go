package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/users/auth0%7Calice", r.URL.EscapedPath())
		assert.Equal(t, "Bearer mgmt-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(User{
			ID:      "auth0|alice",
			Email:   "alice@example.com",
			Name:    "Alice",
			Picture: "https://cdn.example.com/alice.png",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "mgmt-token")
	user, err := client.GetUser(context.Background(), "auth0|alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "https://cdn.example.com/alice.png", user.Picture)
}

func TestGetUser_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "mgmt-token")
	_, err := client.GetUser(context.Background(), "auth0|ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetUserPicture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://blob.test/pic", body["picture"])

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "mgmt-token")
	err := client.SetUserPicture(context.Background(), "auth0|alice", "https://blob.test/pic")
	assert.NoError(t, err)
}

func TestSetUserPicture_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "mgmt-token")
	err := client.SetUserPicture(context.Background(), "auth0|alice", "https://blob.test/pic")
	assert.Error(t, err)
}
