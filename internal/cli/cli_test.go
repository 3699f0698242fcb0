package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent   []string
	resets int
	failOn string
}

func (f *fakeSender) SendMessage(_ context.Context, message string) (string, error) {
	if message == f.failOn {
		return "", errors.New("server unavailable")
	}
	f.sent = append(f.sent, message)
	return "reply to " + message, nil
}

func (f *fakeSender) Reset(context.Context) (string, error) {
	f.resets++
	return "Session reset. Starting a fresh conversation.", nil
}

func TestLoop(t *testing.T) {
	t.Parallel()

	t.Run("relays lines until exit", func(t *testing.T) {
		t.Parallel()
		s := &fakeSender{}
		var out bytes.Buffer
		in := strings.NewReader("hello\n\n   \nspent 5 on coffee\nexit\nnever sent\n")

		require.NoError(t, Loop(context.Background(), in, &out, s))
		require.Equal(t, []string{"hello", "spent 5 on coffee"}, s.sent)
		require.Contains(t, out.String(), "reply to hello")
		require.Contains(t, out.String(), "Bye.")
	})

	t.Run("reset and quit", func(t *testing.T) {
		t.Parallel()
		s := &fakeSender{}
		var out bytes.Buffer

		require.NoError(t, Loop(context.Background(), strings.NewReader("/reset\nQUIT\n"), &out, s))
		require.Equal(t, 1, s.resets)
		require.Empty(t, s.sent)
		require.Contains(t, out.String(), "Session reset")
	})

	t.Run("errors do not end the loop", func(t *testing.T) {
		t.Parallel()
		s := &fakeSender{failOn: "boom"}
		var out bytes.Buffer

		require.NoError(t, Loop(context.Background(), strings.NewReader("boom\nafter\n"), &out, s))
		require.Equal(t, []string{"after"}, s.sent)
		require.Contains(t, out.String(), "error: server unavailable")
	})

	t.Run("EOF ends the loop", func(t *testing.T) {
		t.Parallel()
		s := &fakeSender{}
		var out bytes.Buffer

		require.NoError(t, Loop(context.Background(), strings.NewReader("one"), &out, s))
		require.Equal(t, []string{"one"}, s.sent)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Loop(ctx, strings.NewReader("hello\n"), &bytes.Buffer{}, &fakeSender{})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func newAPIStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "correct-horse" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Unauthorized", "message": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"accessToken": "tok-123"}})
	})
	mux.HandleFunc("POST /api/chat/message", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid or expired token"})
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["message"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false, "message": "Validation failed", "errors": map[string]string{"message": "is required"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"response": "echo: " + req["message"]}})
	})
	mux.HandleFunc("POST /api/chat/reset", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Session reset. Starting a fresh conversation."})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	t.Parallel()

	t.Run("login then chat", func(t *testing.T) {
		t.Parallel()
		c := NewClient(newAPIStub(t).URL+"/", time.Second)
		ctx := context.Background()

		require.NoError(t, c.Login(ctx, "alice", "correct-horse"))
		reply, err := c.SendMessage(ctx, "hi")
		require.NoError(t, err)
		require.Equal(t, "echo: hi", reply)

		msg, err := c.Reset(ctx)
		require.NoError(t, err)
		require.Equal(t, "Session reset. Starting a fresh conversation.", msg)
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()
		c := NewClient(newAPIStub(t).URL, time.Second)

		err := c.Login(context.Background(), "alice", "wrong")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.Status)
		require.Equal(t, "invalid credentials", apiErr.Message)
	})

	t.Run("chat before login", func(t *testing.T) {
		t.Parallel()
		c := NewClient(newAPIStub(t).URL, time.Second)

		_, err := c.SendMessage(context.Background(), "hi")
		require.ErrorIs(t, err, ErrNotLoggedIn)
	})

	t.Run("field errors are included", func(t *testing.T) {
		t.Parallel()
		c := NewClient(newAPIStub(t).URL, time.Second)
		require.NoError(t, c.Login(context.Background(), "alice", "correct-horse"))

		_, err := c.SendMessage(context.Background(), "")
		require.EqualError(t, err, "Validation failed: message is required (HTTP 400)")
	})
}
