package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
)

// Holder is the single owner of session state inside a process. Everything
// reads Current(); only Login and Logout write storage.
type Holder struct {
	storage Storage
	log     *zap.SugaredLogger
	now     func() time.Time

	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextSub     int
}

// NewHolder returns a holder in the checking state; call Refresh to load
func NewHolder(storage Storage, log *zap.SugaredLogger) *Holder {
	return &Holder{
		storage:     storage,
		log:         logger.OrNop(log),
		now:         time.Now,
		state:       State{Checking: true},
		subscribers: make(map[int]func(State)),
	}
}

// Current returns the last known state
func (h *Holder) Current() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Token returns the bearer token, or "" when logged out
func (h *Holder) Token() string {
	st := h.Current()
	if !st.LoggedIn || st.Session == nil {
		return ""
	}
	return st.Session.Token
}

// Subscribe registers fn for state changes and returns an unsubscribe func
func (h *Holder) Subscribe(fn func(State)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subscribers[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
	}
}

// Refresh re-reads storage. An expired token is cleared from storage.
func (h *Holder) Refresh(ctx context.Context) State {
	st := Read(ctx, h.storage, h.now())
	if st.Expired {
		h.log.Infow("session token expired, clearing")
		if err := Clear(ctx, h.storage); err != nil {
			h.log.Warnw("failed to clear expired session", logger.FieldError, err)
		}
	}
	h.set(st)
	return st
}

// Login stores s and makes it current
func (h *Holder) Login(ctx context.Context, s Session) error {
	if !s.User.Role.Valid() {
		h.log.Warnw("login with unrecognized role", logger.FieldRole, s.User.Role)
	}
	if err := Write(ctx, h.storage, s); err != nil {
		return errors.Wrap(err, "failed to store session")
	}
	sess := s
	h.set(State{LoggedIn: true, Role: s.User.Role, Session: &sess})
	h.log.Infow("logged in", logger.FieldRole, s.User.Role)
	return nil
}

// Logout clears storage. State flips to logged out even if storage fails.
func (h *Holder) Logout(ctx context.Context) error {
	err := Clear(ctx, h.storage)
	h.set(LoggedOut)
	if err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	h.log.Infow("logged out")
	return nil
}

func (h *Holder) set(st State) {
	h.mu.Lock()
	changed := !sameState(h.state, st)
	h.state = st
	subs := make([]func(State), 0, len(h.subscribers))
	if changed {
		for _, fn := range h.subscribers {
			subs = append(subs, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func sameState(a, b State) bool {
	if a.Checking != b.Checking || a.LoggedIn != b.LoggedIn || a.Role != b.Role {
		return false
	}
	if (a.Session == nil) != (b.Session == nil) {
		return false
	}
	return a.Session == nil || a.Session.Token == b.Session.Token
}
