// Package action sends status mutations (approve, decline, withdraw, ...)
// for single records and reports the outcome.
package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/teranos/hirepanel/errors"
	"github.com/teranos/hirepanel/logger"
	"github.com/teranos/hirepanel/notify"
	"github.com/teranos/hirepanel/resource"
)

// MaxReasonLength caps the reason text, counted in characters
const MaxReasonLength = 1000

// ErrInFlight is returned when the same record/status pair is already
// being submitted
var ErrInFlight = errors.New("action already in progress")

// Transition is a status change a view offers on its rows
type Transition struct {
	// Name is what the user types or clicks ("approve")
	Name string
	// Status is the target status sent to the API ("approved")
	Status string
	// Method defaults to POST
	Method string
	// Path is the mutation endpoint under /api. "{id}" is replaced by the
	// record id.
	Path           string
	RequiresReason bool
	// Success overrides the success notification
	Success string
}

func (t Transition) method() string {
	if t.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(t.Method)
}

// Endpoint resolves Path for id
func (t Transition) Endpoint(id string) string {
	return strings.ReplaceAll(t.Path, "{id}", id)
}

// Destructive transitions always require a reason
func Destructive(status string) bool {
	switch strings.ToLower(status) {
	case "declined", "decline", "rejected", "withdrawn", "withdraw":
		return true
	}
	return false
}

// Request is the mutation body
type Request struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// MarshalJSON sends numeric ids as JSON numbers
func (r Request) MarshalJSON() ([]byte, error) {
	type body struct {
		ID     any    `json:"id"`
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}
	var id any = r.ID
	if _, err := strconv.ParseUint(r.ID, 10, 64); err == nil {
		id = json.Number(r.ID)
	}
	return json.Marshal(body{ID: id, Status: r.Status, Reason: r.Reason})
}

// Key identifies an in-flight request
func (r Request) Key() string {
	return r.ID + ":" + r.Status
}

// Validate runs the client-side checks for t
func (r Request) Validate(t Transition) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.NewInvalidRequestError("record id is required")
	}
	reason := strings.TrimSpace(r.Reason)
	if (t.RequiresReason || Destructive(t.Status)) && reason == "" {
		return errors.WithHint(
			errors.NewInvalidRequestError("a reason is required to %s", t.Name),
			"pass --reason \"...\"")
	}
	if n := utf8.RuneCountInString(r.Reason); n > MaxReasonLength {
		return errors.NewInvalidRequestError("reason must be at most %d characters (got %d)", MaxReasonLength, n)
	}
	return nil
}

// Result is the decoded mutation response
type Result struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ValidationError carries server field errors (HTTP 422)
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return errors.ErrInvalidRequest
}

// Sender is the part of resource.Client the dispatcher needs
type Sender interface {
	Do(ctx context.Context, method, endpoint, token string, params url.Values, body any) (*resource.Response, error)
}

// Dispatcher sends mutations and tracks which are in flight
type Dispatcher struct {
	sender   Sender
	notifier notify.Notifier
	log      *zap.SugaredLogger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewDispatcher returns a dispatcher; a nil notifier discards messages
func NewDispatcher(sender Sender, notifier notify.Notifier, log *zap.SugaredLogger) *Dispatcher {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{
		sender:   sender,
		notifier: notifier,
		log:      logger.OrNop(log),
		inFlight: make(map[string]struct{}),
	}
}

// InFlight reports whether key ("id:status") is being submitted
func (d *Dispatcher) InFlight(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[key]
	return ok
}

func (d *Dispatcher) acquire(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[key]; busy {
		return false
	}
	d.inFlight[key] = struct{}{}
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, key)
}

// Dispatch validates and sends req for t. On success the notifier gets a
// success message and refetch (if not nil) runs; on failure the notifier
// gets the user-facing error text and the error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, token string, t Transition, req Request, refetch func(context.Context) error) error {
	req.Status = t.Status
	req.Reason = strings.TrimSpace(req.Reason)
	if err := req.Validate(t); err != nil {
		return err
	}

	key := req.Key()
	if !d.acquire(key) {
		return errors.Wrapf(ErrInFlight, "%s", key)
	}

	log := d.log.With(logger.FieldRecordID, req.ID, logger.FieldAction, t.Name)

	resp, err := d.sender.Do(ctx, t.method(), t.Endpoint(req.ID), token, nil, req)
	// the control is busy only while the mutation itself is outstanding
	d.release(key)
	if err != nil {
		d.notifier.Error(errors.UserMessage(err))
		return errors.Wrapf(err, "failed to %s %s", t.Name, req.ID)
	}

	result := decodeResult(resp.Body)
	if !resp.OK() {
		err := failure(resp.Status, result)
		log.Infow("action rejected", logger.FieldStatus, resp.Status, logger.FieldError, err)
		d.notifier.Error(errors.UserMessage(err))
		return err
	}

	msg := t.Success
	if msg == "" {
		msg = result.Message
	}
	if msg == "" {
		msg = "Status updated to " + t.Status
	}
	d.notifier.Success(msg)
	log.Infow("action applied", logger.FieldStatus, resp.Status)

	if refetch != nil {
		if err := refetch(ctx); err != nil {
			log.Warnw("refetch after action failed", logger.FieldError, err)
		}
	}
	return nil
}

func decodeResult(body []byte) Result {
	var r Result
	if len(body) > 0 {
		_ = json.Unmarshal(body, &r)
	}
	return r
}

// failure builds the error for a non-2xx response: field errors on 422,
// otherwise the server message, otherwise the generic status text
func failure(status int, r Result) error {
	if status == http.StatusUnprocessableEntity && len(r.Errors) > 0 {
		return &ValidationError{Message: r.Message, Fields: r.Errors}
	}
	return &errors.StatusError{Code: status, Message: r.Message}
}
