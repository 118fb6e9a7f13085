package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apierrors "github.com/diogo/medimate/internal/errors"
	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/prompt"
)

// fakeSender records prompts and answers with a fixed reply or error.
// With gate set, Send waits for a value on gate or for ctx to end.
type fakeSender struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, p string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeSender) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

func TestSubmit_HeadachesScenario(t *testing.T) {
	sender := &fakeSender{reply: "**Common causes** include dehydration, stress and poor sleep."}
	s := New(WithSender(sender))

	s.SetInput("What causes headaches?")
	if err := s.Submit(context.Background(), s.Input()); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	msgs := s.Messages()
	want := []models.Message{
		{Role: models.RoleUser, Content: "What causes headaches?"},
		{Role: models.RoleAssistant, Content: "**Common causes** include dehydration, stress and poor sleep."},
	}
	if len(msgs) != len(want) {
		t.Fatalf("transcript length = %d, want %d", len(msgs), len(want))
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, msgs[i], want[i])
		}
	}

	calls := sender.calls()
	if len(calls) != 1 {
		t.Fatalf("sender called %d times, want 1", len(calls))
	}
	if calls[0] != prompt.Enrich("What causes headaches?") {
		t.Errorf("outbound prompt = %q", calls[0])
	}
	if q, ok := prompt.Query(calls[0]); !ok || q != "What causes headaches?" {
		t.Errorf("prompt should carry the query verbatim, got %q", q)
	}

	st := s.Snapshot()
	if st.Busy {
		t.Error("store should be idle after completion")
	}
	if st.Input != "" {
		t.Errorf("input buffer = %q, want empty", st.Input)
	}
	if st.LastError != nil {
		t.Errorf("LastError = %v", st.LastError)
	}
}

func TestSubmit_TrimsInput(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	s := New(WithSender(sender))

	if err := s.Submit(context.Background(), "  \n  I feel dizzy \t "); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if got := s.Messages()[0].Content; got != "I feel dizzy" {
		t.Errorf("user message = %q, want trimmed", got)
	}
	if !strings.HasSuffix(sender.calls()[0], "User's query: I feel dizzy") {
		t.Errorf("prompt should end with the trimmed query, got %q", sender.calls()[0])
	}
}

func TestSubmit_BlankInputIsNoop(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t  \n"} {
		t.Run(strings.ReplaceAll(raw, "\n", `\n`), func(t *testing.T) {
			sender := &fakeSender{reply: "never"}
			s := New(WithSender(sender))
			s.SetInput(raw)

			err := s.Submit(context.Background(), raw)
			if !errors.Is(err, apierrors.ErrNotSubmitted) {
				t.Fatalf("Submit() error = %v, want ErrNotSubmitted", err)
			}

			st := s.Snapshot()
			if len(st.Messages) != 0 {
				t.Errorf("transcript should stay empty, got %d messages", len(st.Messages))
			}
			if st.Input != raw {
				t.Errorf("input buffer = %q, want unchanged %q", st.Input, raw)
			}
			if st.Busy {
				t.Error("store should not be busy")
			}
			if len(sender.calls()) != 0 {
				t.Error("sender must not be called")
			}
		})
	}
}

func TestBegin_WhileBusyIsNoop(t *testing.T) {
	s := New()

	first, ok := s.Begin("first question")
	if !ok {
		t.Fatal("first Begin should succeed")
	}
	before := s.Snapshot()

	if _, ok := s.Begin("second question"); ok {
		t.Fatal("Begin while busy should be declined")
	}

	after := s.Snapshot()
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("transcript changed while busy: %d -> %d", len(before.Messages), len(after.Messages))
	}
	if after.Seq != first.Seq {
		t.Errorf("Seq = %d, want %d", after.Seq, first.Seq)
	}
}

func TestSubmit_ConcurrentOnlyOneWins(t *testing.T) {
	sender := &fakeSender{reply: "answer", gate: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(WithSender(sender))

	const n = 20
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Submit(context.Background(), "same question")
		}()
	}

	<-sender.started
	// Everyone but the winner returns without waiting on the sender
	deadline := time.After(2 * time.Second)
	declined := 0
	for declined < n-1 {
		select {
		case err := <-errs:
			if !errors.Is(err, apierrors.ErrNotSubmitted) {
				t.Fatalf("loser error = %v, want ErrNotSubmitted", err)
			}
			declined++
		case <-deadline:
			t.Fatalf("only %d submissions declined", declined)
		}
	}

	close(sender.gate)
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		t.Errorf("winner error = %v", err)
	}
	if got := len(s.Messages()); got != 2 {
		t.Errorf("transcript length = %d, want 2", got)
	}
	if got := len(sender.calls()); got != 1 {
		t.Errorf("sender called %d times, want 1", got)
	}
}

func TestSubmit_FailureKeepsTranscript(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	backendErr := apierrors.NewAPIError(500, "/api/chat", "Failed to get response")
	sender := &fakeSender{err: backendErr}
	s := New(WithSender(sender), WithLogger(zap.New(core)))

	err := s.Submit(context.Background(), "Is ibuprofen safe?")
	if !errors.Is(err, backendErr) {
		t.Fatalf("Submit() error = %v, want backend error", err)
	}

	st := s.Snapshot()
	if st.Busy {
		t.Error("busy should be cleared after failure")
	}
	if len(st.Messages) != 1 || !st.Messages[0].IsUser() {
		t.Fatalf("transcript should hold only the user message, got %+v", st.Messages)
	}
	if !errors.Is(st.LastError, backendErr) {
		t.Errorf("LastError = %v", st.LastError)
	}

	failures := logs.FilterMessage("chat request failed").All()
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure log, got %d", len(failures))
	}
	entry := failures[0]
	if entry.Level != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["seq"] != uint64(1) {
		t.Errorf("seq field = %v", fields["seq"])
	}
	if fields["status"] != int64(500) {
		t.Errorf("status field = %v", fields["status"])
	}
}

func TestBegin_ClearsPreviousError(t *testing.T) {
	s := New(WithSender(&fakeSender{err: errors.New("offline")}))
	_ = s.Submit(context.Background(), "one")
	if s.Snapshot().LastError == nil {
		t.Fatal("expected LastError after failure")
	}

	if _, ok := s.Begin("two"); !ok {
		t.Fatal("Begin should succeed after failure")
	}
	if s.Snapshot().LastError != nil {
		t.Error("Begin should clear LastError")
	}
}

func TestFail_NilErrorUsesDefaultMessage(t *testing.T) {
	s := New()
	p, _ := s.Begin("x")
	s.Fail(p.Seq, nil)

	if err := s.Snapshot().LastError; err == nil || err.Error() != models.DefaultFailureMessage {
		t.Errorf("LastError = %v", err)
	}
}

func TestComplete_StaleTicketIgnored(t *testing.T) {
	s := New()

	p1, _ := s.Begin("first")
	if !s.Fail(p1.Seq, errors.New("boom")) {
		t.Fatal("Fail should apply to the current ticket")
	}
	p2, _ := s.Begin("second")

	if s.Complete(p1.Seq, "late reply for first") {
		t.Error("stale Complete should be ignored")
	}
	if s.Fail(p1.Seq, errors.New("late")) {
		t.Error("stale Fail should be ignored")
	}
	if !s.Snapshot().Busy {
		t.Error("stale ticket must not clear busy")
	}

	if !s.Complete(p2.Seq, "reply for second") {
		t.Fatal("current ticket should complete")
	}
	if s.Complete(p2.Seq, "duplicate") {
		t.Error("a ticket completes once")
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(msgs))
	}
	if msgs[2].Content != "reply for second" {
		t.Errorf("last message = %q", msgs[2].Content)
	}
}

func TestCancel(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(WithSender(sender))

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(context.Background(), "long question")
	}()
	<-sender.started

	if !s.Cancel() {
		t.Fatal("Cancel should report an in-flight request")
	}
	if s.Busy() {
		t.Error("store should be idle right after Cancel")
	}

	select {
	case err := <-done:
		if !apierrors.IsCanceled(err) {
			t.Errorf("Submit() error = %v, want canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not return after Cancel")
	}

	st := s.Snapshot()
	if len(st.Messages) != 1 {
		t.Errorf("transcript length = %d, want 1", len(st.Messages))
	}
	if !apierrors.IsCanceled(st.LastError) {
		t.Errorf("LastError = %v, want canceled", st.LastError)
	}
	if s.Cancel() {
		t.Error("Cancel while idle should report false")
	}
}

func TestCancel_BeforeDispatch(t *testing.T) {
	sender := &fakeSender{reply: "late"}
	s := New(WithSender(sender))

	p, _ := s.Begin("question")
	s.Cancel()

	if err := s.Dispatch(context.Background(), p); !apierrors.IsCanceled(err) {
		t.Errorf("Dispatch() error = %v, want canceled", err)
	}
	if len(sender.calls()) != 0 {
		t.Error("a canceled ticket must not reach the sender")
	}
	if len(s.Messages()) != 1 {
		t.Errorf("transcript length = %d, want 1", len(s.Messages()))
	}
}

func TestSubmit_Timeout(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{})}
	s := New(WithSender(sender), WithTimeout(20*time.Millisecond))

	err := s.Submit(context.Background(), "slow")
	if !apierrors.IsTimeoutError(err) {
		t.Fatalf("Submit() error = %v, want timeout", err)
	}
	var te *apierrors.TimeoutError
	if !errors.As(s.Snapshot().LastError, &te) {
		t.Errorf("LastError = %v, want *TimeoutError", s.Snapshot().LastError)
	}
	if s.Busy() {
		t.Error("busy should be cleared after timeout")
	}
}

func TestSubmit_NoSender(t *testing.T) {
	s := New()
	if err := s.Submit(context.Background(), "hello"); !errors.Is(err, ErrNoSender) {
		t.Fatalf("Submit() error = %v, want ErrNoSender", err)
	}
	if len(s.Messages()) != 0 {
		t.Error("nothing should be appended without a sender")
	}

	p, _ := s.Begin("hello")
	if err := s.Dispatch(context.Background(), p); !errors.Is(err, ErrNoSender) {
		t.Fatalf("Dispatch() error = %v, want ErrNoSender", err)
	}
	if s.Busy() {
		t.Error("Dispatch without sender must not leave the store busy")
	}
}

func TestSenderFunc(t *testing.T) {
	var got string
	s := New(WithSender(SenderFunc(func(_ context.Context, p string) (string, error) {
		got = p
		return "pong", nil
	})), WithPersona(prompt.Persona{}))

	if err := s.Submit(context.Background(), "ping"); err != nil {
		t.Fatal(err)
	}
	if got != "ping" {
		t.Errorf("empty persona should send the query unchanged, got %q", got)
	}
}

func TestSubscribe(t *testing.T) {
	s := New(WithSender(&fakeSender{reply: "fine"}))

	var mu sync.Mutex
	var states []State
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	s.SetInput("hi")
	s.SetInput("hi") // unchanged, no notification
	if err := s.Submit(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	got := append([]State(nil), states...)
	mu.Unlock()

	if len(got) != 3 {
		t.Fatalf("expected 3 notifications (input, begin, complete), got %d", len(got))
	}
	if got[0].Input != "hi" || got[0].Busy {
		t.Errorf("input notification = %+v", got[0])
	}
	if !got[1].Busy || len(got[1].Messages) != 1 {
		t.Errorf("begin notification = %+v", got[1])
	}
	if got[2].Busy || len(got[2].Messages) != 2 {
		t.Errorf("complete notification = %+v", got[2])
	}

	unsubscribe()
	unsubscribe()
	s.SetInput("after")

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 3 {
		t.Errorf("unsubscribed callback still called: %d notifications", len(states))
	}
}

func TestSubscribe_CallbackMayReadStore(t *testing.T) {
	s := New()
	var seen bool
	s.Subscribe(func(State) {
		// Must not deadlock: callbacks run outside the lock
		seen = s.Busy()
	})

	s.Begin("question")
	if !seen {
		t.Error("callback should observe the busy store")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New(WithSender(&fakeSender{reply: "original"}))
	if err := s.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap.Messages[1].Content = "tampered"
	_ = append(snap.Messages, models.NewUserMessage("extra"))

	msgs := s.Messages()
	if msgs[1].Content != "original" {
		t.Errorf("snapshot aliased the transcript: %q", msgs[1].Content)
	}
	if len(msgs) != 2 {
		t.Errorf("transcript length = %d, want 2", len(msgs))
	}
}

func TestState_ShowEmptyState(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"empty idle", State{}, true},
		{"empty busy", State{Busy: true}, false},
		{"with messages", State{Messages: []models.Message{models.NewUserMessage("hi")}}, false},
		{"with messages busy", State{Messages: []models.Message{models.NewUserMessage("hi")}, Busy: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.ShowEmptyState(); got != tt.want {
				t.Errorf("ShowEmptyState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanSubmit(t *testing.T) {
	s := New()
	if s.CanSubmit() {
		t.Error("empty input should not be submittable")
	}
	s.SetInput("   ")
	if s.CanSubmit() {
		t.Error("whitespace input should not be submittable")
	}
	s.SetInput("headache")
	if !s.CanSubmit() {
		t.Error("non-blank input should be submittable")
	}
	s.Begin("first")
	s.SetInput("second")
	if s.CanSubmit() {
		t.Error("input should not be submittable while busy")
	}
}

func TestLastAssistant(t *testing.T) {
	s := New(WithSender(&fakeSender{reply: "first reply"}))
	if _, ok := s.LastAssistant(); ok {
		t.Error("no assistant message yet")
	}
	_ = s.Submit(context.Background(), "q1")
	_, _ = s.Begin("q2")

	msg, ok := s.LastAssistant()
	if !ok || msg.Content != "first reply" {
		t.Errorf("LastAssistant() = %+v, %v", msg, ok)
	}
}
