package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contextos/internal/agent"
	"contextos/internal/config"
	"contextos/internal/types"
)

// fakeExecutor scripts continuation results. With block set it parks
// until released, keeping a continuation in flight on demand.
type fakeExecutor struct {
	mu          sync.Mutex
	calls       int
	lastSession *types.Session
	result      *agent.ContinueResult
	err         error
	block       chan struct{}
}

func (f *fakeExecutor) ExecuteContinue(_ context.Context, s *types.Session) (*agent.ContinueResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastSession = s
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingListener captures lifecycle events on channels.
type recordingListener struct {
	updated   chan *types.Session
	completed chan *types.Session
}

func newListener() *recordingListener {
	return &recordingListener{
		updated:   make(chan *types.Session, 32),
		completed: make(chan *types.Session, 32),
	}
}

func (l *recordingListener) SessionUpdated(s *types.Session)   { l.updated <- s }
func (l *recordingListener) SessionCompleted(s *types.Session) { l.completed <- s }

// genai (reached through the agent's LLM client) starts an opencensus
// stats worker at init that runs for the life of the process; it is
// not a per-test leak.
var ignoreOpencensus = goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start")

func continueResult(answer string) *agent.ContinueResult {
	return &agent.ContinueResult{
		ComposedUser:   types.TextMessage(types.RoleUser, "composed: "+answer),
		Assistant:      types.TextMessage(types.RoleAssistant, "<thought>t</thought>"+answer),
		AssistantClean: types.TextMessage(types.RoleAssistant, answer),
	}
}

func newTestSession(t *testing.T, level types.Level, maxTurns int) *types.Session {
	t.Helper()
	msgs := []types.Message{
		types.TextMessage(types.RoleSystem, "system prompt"),
		types.TextMessage(types.RoleUser, "hello"),
		types.TextMessage(types.RoleAssistant, "answer"),
	}
	s, err := types.NewSession(level, "Test", msgs, types.CloneMessages(msgs))
	require.NoError(t, err)
	s.Config = types.SessionConfig{Level: level, MaxTurns: maxTurns}
	return s
}

func startHandler(t *testing.T, exec ContinueExecutor, cfg config.SessionConfig) (*Handler, *recordingListener) {
	t.Helper()
	listener := newListener()
	h := NewHandler(cfg, exec, listener)
	h.Start(context.Background())
	// Cleanups run last registered first: the handler stops before the
	// leak check looks at the remaining goroutines.
	t.Cleanup(func() { goleak.VerifyNone(t, ignoreOpencensus) })
	t.Cleanup(h.Stop)
	return h, listener
}

func waitCompleted(t *testing.T, l *recordingListener) *types.Session {
	t.Helper()
	select {
	case s := <-l.completed:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("session never completed")
		return nil
	}
}

func waitUpdated(t *testing.T, l *recordingListener) *types.Session {
	t.Helper()
	select {
	case s := <-l.updated:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no session update arrived")
		return nil
	}
}

func TestNotifyAutoFinalizesOnceRead(t *testing.T) {
	h, listener := startHandler(t, &fakeExecutor{}, config.SessionConfig{FinalizeDelay: "20ms"})
	s := newTestSession(t, types.LevelNotify, 0)

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.MarkRead(s.Metadata.UUID)

	done := waitCompleted(t, listener)
	assert.Equal(t, types.StatusCompleted, done.Status)
}

func TestNotifyStaysActiveWhileUnread(t *testing.T) {
	h, listener := startHandler(t, &fakeExecutor{}, config.SessionConfig{FinalizeDelay: "20ms"})
	s := newTestSession(t, types.LevelNotify, 0)

	h.HandleSession(s)
	waitUpdated(t, listener)

	// Several finalize delays pass but the session was never read.
	time.Sleep(100 * time.Millisecond)
	snap, ok := h.Session(s.Metadata.UUID)
	require.True(t, ok)
	assert.Equal(t, types.StatusActive, snap.Status)

	h.MarkRead(s.Metadata.UUID)
	waitCompleted(t, listener)
}

func TestReviewContinuationAppliesResult(t *testing.T) {
	exec := &fakeExecutor{result: continueResult("follow-up answer")}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	s := newTestSession(t, types.LevelReview, -1)
	id := s.Metadata.UUID

	h.HandleSession(s)
	waitUpdated(t, listener)

	h.OnUserInput(id, "tell me more")
	waitUpdated(t, listener) // user turn appended
	waitUpdated(t, listener) // continuation applied

	snap, ok := h.Session(id)
	require.True(t, ok)
	require.Len(t, snap.Messages, 5)
	require.Len(t, snap.MessagesToUser, 5)

	// LLM transcript carries the composed prompt and the raw answer;
	// the UI transcript keeps the plain text on both sides.
	assert.Equal(t, "composed: follow-up answer", snap.Messages[3].Text())
	assert.Equal(t, "tell me more", snap.MessagesToUser[3].Text())
	assert.Contains(t, snap.Messages[4].Text(), "<thought>")
	assert.Equal(t, "follow-up answer", snap.MessagesToUser[4].Text())
	assert.False(t, snap.IsRead, "new assistant output must flag the session unread")
	assert.Equal(t, types.StatusActive, snap.Status)
	assert.Equal(t, 1, exec.callCount())
}

func TestContinuationWorkerGetsSnapshot(t *testing.T) {
	exec := &fakeExecutor{result: continueResult("ok")}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	s := newTestSession(t, types.LevelReview, -1)

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.OnUserInput(s.Metadata.UUID, "input")
	waitUpdated(t, listener)
	waitUpdated(t, listener)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.NotSame(t, s, exec.lastSession, "worker must receive a clone, not the live session")
	assert.Equal(t, "input", exec.lastSession.Messages[3].Text())
}

func TestFinishCommandCompletesWithoutAgent(t *testing.T) {
	exec := &fakeExecutor{result: continueResult("unused")}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	s := newTestSession(t, types.LevelReview, -1)
	id := s.Metadata.UUID

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.OnUserInput(id, "  /FINISH ")

	done := waitCompleted(t, listener)
	require.Len(t, done.Messages, 4)
	assert.Equal(t, "/finish", done.Messages[3].Text())
	assert.Equal(t, "You have finished this conversation.", done.MessagesToUser[3].Text())
	assert.Equal(t, types.StatusCompleted, done.Status)
	assert.Zero(t, exec.callCount(), "finish must not invoke the agent")
}

func TestButtonMessage(t *testing.T) {
	tests := []struct {
		inner string
		want  string
	}{
		{"Yes", approvedMessage},
		{"  approve ", approvedMessage},
		{"OK", approvedMessage},
		{"confirm", approvedMessage},
		{"No", rejectedMessage},
		{"dismiss", rejectedMessage},
		{"Cancel", rejectedMessage},
		{"reject", rejectedMessage},
		{"Maybe later", "Maybe later"},
	}
	for _, tt := range tests {
		t.Run(tt.inner, func(t *testing.T) {
			assert.Equal(t, tt.want, buttonMessage(tt.inner))
		})
	}
}

func TestButtonTokenUnwrappedOnInput(t *testing.T) {
	exec := &fakeExecutor{result: continueResult("confirmed")}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	s := newTestSession(t, types.LevelReview, -1)

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.OnUserInput(s.Metadata.UUID, "<||Yes||>")

	updated := waitUpdated(t, listener)
	assert.Equal(t, approvedMessage, updated.MessagesToUser[3].Text())
}

func TestTurnBudgetExhaustionFinalizes(t *testing.T) {
	exec := &fakeExecutor{result: continueResult("unused")}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	// One user turn already in the transcript; budget of two admits the
	// new turn but forbids continuing past it.
	s := newTestSession(t, types.LevelReview, 2)
	id := s.Metadata.UUID

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.OnUserInput(id, "last word")

	done := waitCompleted(t, listener)
	assert.Equal(t, types.StatusCompleted, done.Status)
	assert.Equal(t, "last word", done.MessagesToUser[3].Text())
	assert.Zero(t, exec.callCount())
}

func TestConcurrentTurnRejectedWhileInFlight(t *testing.T) {
	exec := &fakeExecutor{
		result: continueResult("slow answer"),
		block:  make(chan struct{}),
	}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	s := newTestSession(t, types.LevelReview, -1)
	id := s.Metadata.UUID

	h.HandleSession(s)
	waitUpdated(t, listener)

	h.OnUserInput(id, "first")
	waitUpdated(t, listener)
	h.OnUserInput(id, "second") // rejected: continuation in flight

	close(exec.block)
	waitUpdated(t, listener) // continuation applied

	snap, ok := h.Session(id)
	require.True(t, ok)
	assert.Equal(t, 1, exec.callCount())
	require.Len(t, snap.Messages, 5)
	assert.Equal(t, "first", snap.MessagesToUser[3].Text())
	assert.Equal(t, "slow answer", snap.MessagesToUser[4].Text())
}

func TestContinuationErrorMarksSessionErrored(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("model unreachable")}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	s := newTestSession(t, types.LevelReview, -1)

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.OnUserInput(s.Metadata.UUID, "hello?")

	done := waitCompleted(t, listener)
	assert.Equal(t, types.StatusError, done.Status)
	require.Len(t, done.Messages, 5)
	assert.Equal(t, "[Error] model unreachable", done.Messages[4].Text())
	assert.Equal(t, "[Error] model unreachable", done.MessagesToUser[4].Text())
}

func TestInputForCompletedSessionIgnored(t *testing.T) {
	exec := &fakeExecutor{result: continueResult("unused")}
	h, listener := startHandler(t, exec, config.SessionConfig{})
	s := newTestSession(t, types.LevelReview, -1)
	id := s.Metadata.UUID

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.OnUserInput(id, "/finish")
	waitCompleted(t, listener)

	h.OnUserInput(id, "anyone there?")
	time.Sleep(50 * time.Millisecond)

	snap, ok := h.Session(id)
	require.True(t, ok)
	assert.Len(t, snap.Messages, 4, "completed session must not grow")
	assert.Zero(t, exec.callCount())
}

func TestUnknownLevelTreatedAsNotify(t *testing.T) {
	h, listener := startHandler(t, &fakeExecutor{}, config.SessionConfig{FinalizeDelay: "20ms"})
	s := newTestSession(t, types.Level("Escalate"), 0)

	h.HandleSession(s)
	waitUpdated(t, listener)
	h.MarkRead(s.Metadata.UUID)
	waitCompleted(t, listener)
}

func TestSessionsReturnsSnapshots(t *testing.T) {
	h, listener := startHandler(t, &fakeExecutor{}, config.SessionConfig{})
	for i := 0; i < 3; i++ {
		s := newTestSession(t, types.LevelReview, -1)
		s.Title = fmt.Sprintf("Session %d", i)
		h.HandleSession(s)
		waitUpdated(t, listener)
	}

	all := h.Sessions()
	assert.Len(t, all, 3)
	for _, s := range all {
		assert.Equal(t, types.StatusActive, s.Status)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := NewHandler(config.SessionConfig{}, &fakeExecutor{}, nil)
	h.Start(context.Background())
	h.Stop()
	h.Stop()
}
