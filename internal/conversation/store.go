// Package conversation holds the state of a chat: the append-only transcript,
// the input buffer and the single in-flight request.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apierrors "github.com/diogo/medimate/internal/errors"
	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/prompt"
)

// Sender delivers an enriched prompt to the backend and returns the reply
type Sender interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, prompt string) (string, error)

// Send implements Sender
func (f SenderFunc) Send(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrNoSender is returned by Submit when the store was built without a Sender
var ErrNoSender = errors.New("conversation has no sender")

// State is a point-in-time copy of the conversation.
// Messages never aliases the store's transcript.
type State struct {
	Messages  []models.Message
	Input     string
	Busy      bool
	LastError error
	// Seq is the ticket of the most recent submission, 0 before the first
	Seq uint64
}

// ShowEmptyState reports whether the welcome screen should be shown
func (s State) ShowEmptyState() bool {
	return len(s.Messages) == 0 && !s.Busy
}

// CanSubmit reports whether the submit control is enabled
func (s State) CanSubmit() bool {
	return !s.Busy && strings.TrimSpace(s.Input) != ""
}

// Pending is the ticket for a request started by Begin
type Pending struct {
	Seq uint64
	// Prompt is the enriched text to send
	Prompt string
	// Text is the trimmed user message
	Text string
}

// Store is the observable conversation state. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	messages []models.Message
	input    string
	busy     bool
	lastErr  error
	seq      uint64
	pending  uint64
	cancel   context.CancelFunc

	sender  Sender
	persona prompt.Persona
	timeout time.Duration
	logger  *zap.Logger

	subs    map[int]func(State)
	nextSub int
}

// Option configures a Store
type Option func(*Store)

// WithSender sets the backend used by Submit and Dispatch
func WithSender(s Sender) Option {
	return func(st *Store) {
		st.sender = s
	}
}

// WithTimeout bounds each request. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(st *Store) {
		if d > 0 {
			st.timeout = d
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *zap.Logger) Option {
	return func(st *Store) {
		if logger != nil {
			st.logger = logger
		}
	}
}

// WithPersona replaces the prompt persona
func WithPersona(p prompt.Persona) Option {
	return func(st *Store) {
		st.persona = p
	}
}

// New creates an empty conversation
func New(opts ...Option) *Store {
	s := &Store{
		persona: prompt.MediMate,
		timeout: models.DefaultRequestTimeout,
		logger:  zap.NewNop(),
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the per-request bound
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// SetInput replaces the input buffer
func (s *Store) SetInput(text string) {
	s.mu.Lock()
	if s.input == text {
		s.mu.Unlock()
		return
	}
	s.input = text
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
}

// Input returns the input buffer
func (s *Store) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// CanSubmit reports whether the current input may be submitted
func (s *Store) CanSubmit() bool {
	return s.Snapshot().CanSubmit()
}

// Busy reports whether a request is in flight
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Begin starts a submission of raw. It returns false, changing nothing, when
// raw is blank or a request is already in flight. Otherwise the trimmed text
// is appended as a user message, the input buffer is cleared and the store is
// busy until Complete or Fail is called with the returned ticket.
func (s *Store) Begin(raw string) (Pending, bool) {
	text := strings.TrimSpace(raw)

	s.mu.Lock()
	if text == "" || s.busy {
		s.mu.Unlock()
		return Pending{}, false
	}

	s.seq++
	s.pending = s.seq
	s.busy = true
	s.lastErr = nil
	s.input = ""
	s.messages = append(s.messages, models.NewUserMessage(text))

	p := Pending{
		Seq:    s.seq,
		Prompt: s.persona.Wrap(text),
		Text:   text,
	}
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.logger.Debug("chat request started",
		zap.Uint64("seq", p.Seq),
		zap.Int("query_len", len(text)))

	notify(subs, snap)
	return p, true
}

// Complete appends reply as an assistant message and clears busy.
// Tickets other than the one in flight are ignored; the result reports
// whether the reply was applied.
func (s *Store) Complete(seq uint64, reply string) bool {
	s.mu.Lock()
	if !s.busy || seq != s.pending {
		s.mu.Unlock()
		s.logger.Debug("stale reply ignored", zap.Uint64("seq", seq))
		return false
	}

	s.messages = append(s.messages, models.NewAssistantMessage(reply))
	s.finishLocked()
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.logger.Debug("chat request completed",
		zap.Uint64("seq", seq),
		zap.Int("reply_len", len(reply)))

	notify(subs, snap)
	return true
}

// Fail clears busy and records err without touching the transcript.
// Tickets other than the one in flight are ignored.
func (s *Store) Fail(seq uint64, err error) bool {
	if err == nil {
		err = errors.New(models.DefaultFailureMessage)
	}

	s.mu.Lock()
	if !s.busy || seq != s.pending {
		s.mu.Unlock()
		return false
	}

	s.lastErr = err
	s.finishLocked()
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if apierrors.IsCanceled(err) {
		s.logger.Info("chat request canceled", zap.Uint64("seq", seq))
	} else {
		s.logger.Error("chat request failed",
			zap.Uint64("seq", seq),
			zap.Int("status", apierrors.GetHTTPStatus(err)),
			zap.Error(err))
	}

	notify(subs, snap)
	return true
}

// Cancel abandons the request in flight. The store leaves the busy state
// immediately and the eventual reply is discarded.
func (s *Store) Cancel() bool {
	s.mu.Lock()
	if !s.busy {
		s.mu.Unlock()
		return false
	}
	seq := s.pending
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return s.Fail(seq, fmt.Errorf("chat request canceled: %w", context.Canceled))
}

// Dispatch sends the prompt of p with the store's Sender and settles the
// ticket. The request is bounded by the store timeout and by Cancel.
func (s *Store) Dispatch(ctx context.Context, p Pending) error {
	if s.sender == nil {
		s.Fail(p.Seq, ErrNoSender)
		return ErrNoSender
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	if !s.busy || s.pending != p.Seq {
		s.mu.Unlock()
		return fmt.Errorf("chat request canceled: %w", context.Canceled)
	}
	s.cancel = cancel
	s.mu.Unlock()

	reply, err := s.sender.Send(ctx, p.Prompt)
	if err != nil {
		var te *apierrors.TimeoutError
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.As(err, &te) {
			err = apierrors.NewTimeoutError(fmt.Sprintf("no reply within %s", s.timeout))
		}
		s.Fail(p.Seq, err)
		return err
	}

	if !s.Complete(p.Seq, reply) {
		// Canceled while the reply was on its way
		return fmt.Errorf("chat request canceled: %w", context.Canceled)
	}
	return nil
}

// Submit is Begin followed by Dispatch. It returns ErrNotSubmitted when
// Begin declines the input.
func (s *Store) Submit(ctx context.Context, raw string) error {
	if s.sender == nil {
		return ErrNoSender
	}
	p, ok := s.Begin(raw)
	if !ok {
		return apierrors.ErrNotSubmitted
	}
	return s.Dispatch(ctx, p)
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs outside the store lock on the goroutine that made the change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Messages returns a copy of the transcript
func (s *Store) Messages() []models.Message {
	return s.Snapshot().Messages
}

// LastAssistant returns the most recent assistant message
func (s *Store) LastAssistant() (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].IsAssistant() {
			return s.messages[i], true
		}
	}
	return models.Message{}, false
}

// finishLocked leaves the busy state. Callers hold s.mu.
func (s *Store) finishLocked() {
	s.busy = false
	s.pending = 0
	s.cancel = nil
}

func (s *Store) snapshotLocked() State {
	msgs := make([]models.Message, len(s.messages))
	copy(msgs, s.messages)
	return State{
		Messages:  msgs,
		Input:     s.input,
		Busy:      s.busy,
		LastError: s.lastErr,
		Seq:       s.seq,
	}
}

func (s *Store) subscribersLocked() []func(State) {
	if len(s.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	// registration order
	slices.Sort(ids)
	out := make([]func(State), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

func notify(subs []func(State), snap State) {
	for _, fn := range subs {
		fn(snap)
	}
}
