package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/localstore"
	"github.com/teranos/hirepanel/resource"
	"github.com/teranos/hirepanel/session"
)

func setup(t *testing.T, h http.HandlerFunc) (*resource.Client, *session.Holder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	log := zaptest.NewLogger(t).Sugar()
	client, err := resource.NewClient(resource.Config{BaseURL: srv.URL}, log)
	require.NoError(t, err)

	store, err := localstore.Open(filepath.Join(t.TempDir(), "session.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	holder := session.NewHolder(store, log)
	holder.Refresh(context.Background())
	return client, holder
}

func TestLogin_StoresSession(t *testing.T) {
	var got map[string]string
	client, holder := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"token":"abc","user":{"id":4,"role":"recruiter","full_name":"Grace Hopper"}}`))
	})

	sess, err := Login(context.Background(), client, holder, Credentials{Email: " grace@example.com ", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "grace@example.com", got["email"])
	assert.Equal(t, "abc", sess.Token)
	assert.Equal(t, session.RoleRecruiter, sess.User.Role)

	st := holder.Current()
	assert.True(t, st.LoggedIn)
	assert.Equal(t, session.RoleRecruiter, st.Role)
	assert.Equal(t, "abc", holder.Token())
}

func TestLogin_DataWrappedPayload(t *testing.T) {
	client, holder := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"access_token":"xyz","user":{"role":"superadmin"}}}`))
	})

	sess, err := Login(context.Background(), client, holder, Credentials{Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "xyz", sess.Token)
	assert.Equal(t, session.RoleSuperadmin, holder.Current().Role)
}

func TestLogin_ValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	client, holder := setup(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := Login(context.Background(), client, holder, Credentials{Email: "not-an-email"})
	require.Error(t, err)

	var ve *action.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "password")
	assert.True(t, errors.IsInvalidRequest(err))
	assert.Zero(t, calls.Load())
	assert.False(t, holder.Current().LoggedIn)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		is      error
	}{
		{"bad credentials", http.StatusUnauthorized, `{}`, "Invalid email or password.", errors.ErrUnauthorized},
		{"server message", http.StatusForbidden, `{"message":"Account pending approval"}`, "Account pending approval", errors.ErrForbidden},
		{"field errors", http.StatusUnprocessableEntity, `{"message":"Invalid","errors":{"email":["taken"]}}`, "Invalid", errors.ErrInvalidRequest},
		{"no token", http.StatusOK, `{"user":{"role":"staff"}}`, "The server returned an invalid response.", errors.ErrInvalidResponse},
		{"not json", http.StatusOK, `<html>`, "The server returned an invalid response.", errors.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, holder := setup(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := Login(context.Background(), client, holder, Credentials{Email: "a@example.com", Password: "pw"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
			assert.Equal(t, tt.message, errors.UserMessage(err))
			assert.False(t, holder.Current().LoggedIn)
		})
	}
}

func TestLogout_BestEffort(t *testing.T) {
	var logoutAuth atomic.Value
	client, holder := setup(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			w.Write([]byte(`{"token":"abc","user":{"role":"candidate"}}`))
		case "/api/logout":
			logoutAuth.Store(r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	ctx := context.Background()
	_, err := Login(ctx, client, holder, Credentials{Email: "c@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, Logout(ctx, client, holder, zaptest.NewLogger(t).Sugar()))
	assert.Equal(t, "Bearer abc", logoutAuth.Load())
	assert.False(t, holder.Current().LoggedIn)
	assert.Empty(t, holder.Token())
}

func TestMe(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user", r.URL.Path)
		w.Write([]byte(`{"data":{"role":"staff","email":"s@example.com"}}`))
	})

	u, err := Me(context.Background(), client, "tok")
	require.NoError(t, err)
	assert.Equal(t, session.RoleStaff, u.Role)
	assert.Equal(t, "s@example.com", u.Email)

	_, err = Me(context.Background(), client, "")
	assert.True(t, errors.IsUnauthorized(err))
}
