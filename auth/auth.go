// Package auth is the client side of the recruiting API's login flow.
// The API issues and validates tokens; this package only exchanges
// credentials for a token and hands the result to the session holder.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/hirepanel/action"
	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
	"github.com/teranos/hirepanel/session"
)

// API endpoints, relative to {base}/api/
const (
	LoginEndpoint  = "login"
	LogoutEndpoint = "logout"
	MeEndpoint     = "user"
)

// Credentials is the login form
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the form before any network call
func (c Credentials) Validate() error {
	fields := map[string][]string{}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		fields["email"] = []string{"The email field is required."}
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = []string{"The email must be a valid email address."}
	}
	if c.Password == "" {
		fields["password"] = []string{"The password field is required."}
	}
	if len(fields) > 0 {
		return &action.ValidationError{Message: "Please fix the highlighted fields.", Fields: fields}
	}
	return nil
}

// loginResponse accepts both the flat and the data-wrapped shapes the API
// has used for the login payload
type loginResponse struct {
	Message     string              `json:"message"`
	Errors      map[string][]string `json:"errors"`
	Token       string              `json:"token"`
	AccessToken string              `json:"access_token"`
	User        *session.User       `json:"user"`
	Data        *struct {
		Token       string        `json:"token"`
		AccessToken string        `json:"access_token"`
		User        *session.User `json:"user"`
	} `json:"data"`
}

func (r loginResponse) session() (session.Session, bool) {
	token := firstNonEmpty(r.Token, r.AccessToken)
	user := r.User
	if r.Data != nil {
		token = firstNonEmpty(token, r.Data.Token, r.Data.AccessToken)
		if user == nil {
			user = r.Data.User
		}
	}
	if token == "" || user == nil {
		return session.Session{}, false
	}
	return session.Session{Token: token, User: *user}, true
}

// Login exchanges creds for a session and stores it in holder
func Login(ctx context.Context, sender action.Sender, holder *session.Holder, creds Credentials) (session.Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := creds.Validate(); err != nil {
		return session.Session{}, err
	}

	resp, err := sender.Do(ctx, http.MethodPost, LoginEndpoint, "", nil, creds)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "login request failed")
	}

	var body loginResponse
	decodeErr := json.Unmarshal(resp.Body, &body)

	if !resp.OK() {
		if resp.Status == http.StatusUnprocessableEntity && len(body.Errors) > 0 {
			return session.Session{}, &action.ValidationError{Message: body.Message, Fields: body.Errors}
		}
		msg := body.Message
		if resp.Status == http.StatusUnauthorized && msg == "" {
			msg = "Invalid email or password."
		}
		return session.Session{}, errors.WithHint(
			&errors.StatusError{Code: resp.Status, Message: msg},
			"check the email and password for this account",
		)
	}
	if decodeErr != nil {
		return session.Session{}, errors.Mark(errors.Wrap(decodeErr, "failed to decode login response"), errors.ErrInvalidResponse)
	}

	sess, ok := body.session()
	if !ok {
		return session.Session{}, errors.Mark(errors.New("login response carried no token or user"), errors.ErrInvalidResponse)
	}
	if err := holder.Login(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

// Logout tells the API to revoke the token, then clears local state.
// The remote call is best effort: a dead server must not keep anyone
// logged in locally.
func Logout(ctx context.Context, sender action.Sender, holder *session.Holder, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)
	if token := holder.Token(); token != "" {
		resp, err := sender.Do(ctx, http.MethodPost, LogoutEndpoint, token, nil, nil)
		switch {
		case err != nil:
			log.Warnw("remote logout failed", logger.FieldError, err)
		case !resp.OK():
			log.Debugw("remote logout rejected", logger.FieldStatus, resp.Status)
		}
	}
	return holder.Logout(ctx)
}

// Me fetches the current user from the API. The payload may be the user
// itself or wrapped in {data: ...}.
func Me(ctx context.Context, sender action.Sender, token string) (session.User, error) {
	if token == "" {
		return session.User{}, errors.WithHint(errors.ErrUnauthorized, "run `hirepanel login`")
	}
	resp, err := sender.Do(ctx, http.MethodGet, MeEndpoint, token, nil, nil)
	if err != nil {
		return session.User{}, errors.Wrap(err, "failed to fetch current user")
	}
	if !resp.OK() {
		return session.User{}, &errors.StatusError{Code: resp.Status}
	}

	var wrapped struct {
		Data *session.User `json:"data"`
		User *session.User `json:"user"`
	}
	if err := json.Unmarshal(resp.Body, &wrapped); err != nil {
		return session.User{}, errors.Mark(errors.Wrap(err, "failed to decode user"), errors.ErrInvalidResponse)
	}
	switch {
	case wrapped.Data != nil:
		return *wrapped.Data, nil
	case wrapped.User != nil:
		return *wrapped.User, nil
	}
	var u session.User
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return session.User{}, errors.Mark(errors.Wrap(err, "failed to decode user"), errors.ErrInvalidResponse)
	}
	return u, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
