// Package session reads the bearer token and user profile written by the
// login flow and keeps one in-process holder of that state.
//
// Reads never fail: a missing token, an unreadable store or a user blob
// that does not parse all mean "logged out".
package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/localstore"
)

// Role is the platform role stored on the user profile
type Role string

const (
	RoleCandidate  Role = "candidate"
	RoleRecruiter  Role = "recruiter"
	RoleStaff      Role = "staff"
	RoleSuperadmin Role = "superadmin"
)

// Roles lists every known role
var Roles = []Role{RoleCandidate, RoleRecruiter, RoleStaff, RoleSuperadmin}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is the serialized profile stored under the "user" key
type User struct {
	ID           any    `json:"id,omitempty"`
	Role         Role   `json:"role"`
	FullName     string `json:"full_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Email        string `json:"email,omitempty"`
}

// DisplayName picks the best available label for the user
func (u User) DisplayName() string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.ContactEmail != "":
		return u.ContactEmail
	}
	return u.Email
}

// Session is a bearer token plus the profile it belongs to
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// State is what guards and views consume
type State struct {
	Checking bool
	LoggedIn bool
	Role     Role
	Session  *Session
	// Expired is set when a token was present but its exp claim has passed
	Expired bool
}

// LoggedOut is the zero logged-out state
var LoggedOut = State{}

// Storage is the subset of localstore.Store the session needs
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Read synchronously reads the session from storage
func Read(ctx context.Context, storage Storage, now time.Time) State {
	token, err := storage.Get(ctx, localstore.KeyToken)
	if err != nil || strings.TrimSpace(token) == "" {
		return LoggedOut
	}

	rawUser, err := storage.Get(ctx, localstore.KeyUser)
	if err != nil {
		return LoggedOut
	}

	// a null or role-less profile counts as no profile
	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.Role == "" {
		return LoggedOut
	}

	if exp, ok := TokenExpiry(token); ok && !now.Before(exp) {
		return State{Expired: true}
	}

	return State{
		LoggedIn: true,
		Role:     user.Role,
		Session:  &Session{Token: token, User: user},
	}
}

// Write stores s the way the login flow does: user first, token last, so a
// concurrent reader never sees a token without its profile
func Write(ctx context.Context, storage Storage, s Session) error {
	if strings.TrimSpace(s.Token) == "" {
		return errors.NewInvalidRequestError("session token is empty")
	}
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return errors.Wrap(err, "failed to encode user")
	}
	if err := storage.Set(ctx, localstore.KeyUser, string(userJSON)); err != nil {
		return err
	}
	return storage.Set(ctx, localstore.KeyToken, s.Token)
}

// Clear removes token and user; token goes first so readers flip to
// logged out immediately
func Clear(ctx context.Context, storage Storage) error {
	if err := storage.Remove(ctx, localstore.KeyToken); err != nil {
		return err
	}
	return storage.Remove(ctx, localstore.KeyUser)
}

// TokenExpiry extracts the exp claim from a JWT bearer token without
// verifying it. Opaque tokens report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
