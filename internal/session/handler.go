// Package session owns the lifecycle of built sessions: activation,
// the read-gated auto-finalize of notifications, multi-turn
// continuation of reviews, and terminal states.
//
// The handler is an actor: one goroutine owns every session mutation,
// and all public methods post operations onto its loop. Continuation
// work runs in background workers that report back through the same
// loop, so there is exactly one writer no matter how many turns are in
// flight.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"contextos/internal/agent"
	"contextos/internal/config"
	"contextos/internal/logging"
	"contextos/internal/types"
)

// ContinueExecutor resumes a session transcript. *agent.ReactAgent is
// the production implementation.
type ContinueExecutor interface {
	ExecuteContinue(ctx context.Context, session *types.Session) (*agent.ContinueResult, error)
}

// Listener receives lifecycle notifications with session snapshots.
// All callbacks run on the handler loop; implementations must not call
// back into the handler synchronously.
type Listener interface {
	SessionUpdated(session *types.Session)
	SessionCompleted(session *types.Session)
}

// Canonical phrases for button-token input.
const (
	approvedMessage = "User approved to confirm this message."
	rejectedMessage = "User rejected this message."

	finishCommand  = "/finish"
	finishedAnswer = "You have finished this conversation."
)

// Handler manages active sessions.
type Handler struct {
	cfg      config.SessionConfig
	listener Listener

	mu       sync.Mutex
	executor ContinueExecutor

	ops    chan func()
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Loop-owned state. Touched only from run().
	sessions map[string]*types.Session
	timers   map[string]*time.Timer
	inflight map[string]bool
	workers  sync.WaitGroup
}

// NewHandler creates a Handler. listener may be nil.
func NewHandler(cfg config.SessionConfig, executor ContinueExecutor, listener Listener) *Handler {
	return &Handler{
		cfg:      cfg,
		listener: listener,
		executor: executor,
		ops:      make(chan func(), 64),
		done:     make(chan struct{}),
		sessions: make(map[string]*types.Session),
		timers:   make(map[string]*time.Timer),
		inflight: make(map[string]bool),
	}
}

// Start launches the handler loop.
func (h *Handler) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)
	go h.run()
}

// Stop halts the loop and waits for in-flight continuation workers.
func (h *Handler) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
	h.workers.Wait()
}

// SetExecutor swaps the continuation executor, used on config reload.
func (h *Handler) SetExecutor(executor ContinueExecutor) {
	h.mu.Lock()
	h.executor = executor
	h.mu.Unlock()
}

func (h *Handler) currentExecutor() ContinueExecutor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.executor
}

func (h *Handler) run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.stopTimers()
			return
		case op := <-h.ops:
			op()
		}
	}
}

func (h *Handler) stopTimers() {
	for id, timer := range h.timers {
		timer.Stop()
		delete(h.timers, id)
	}
}

// post hands an operation to the loop, dropping it when the handler is
// already stopped.
func (h *Handler) post(op func()) {
	select {
	case h.ops <- op:
	case <-h.done:
	}
}

// HandleSession takes ownership of a new session. Implements the
// pipeline's SessionSink.
func (h *Handler) HandleSession(session *types.Session) {
	h.post(func() { h.handleSession(session) })
}

func (h *Handler) handleSession(session *types.Session) {
	log := logging.Get(logging.CategorySession)
	id := session.Metadata.UUID

	h.sessions[id] = session
	if err := session.SetStatus(types.StatusActive); err != nil {
		log.Errorw("failed to activate session", "session", id, "error", err)
		return
	}
	log.Infow("session active",
		"session", id,
		"level", session.Level,
		"max_turns", session.Config.MaxTurns)

	switch session.Level {
	case types.LevelReview:
		// Stays active awaiting user input.
	default:
		if session.Level != types.LevelNotify {
			log.Warnw("unknown session level, treating as Notify", "session", id, "level", session.Level)
		}
		h.scheduleAutoFinalize(id)
	}

	h.notifyUpdated(session)
}

// MarkRead records that the user has seen the session, which unblocks
// the Notify auto-finalize check.
func (h *Handler) MarkRead(sessionID string) {
	h.post(func() {
		if session, ok := h.sessions[sessionID]; ok {
			session.MarkRead()
		}
	})
}

// OnUserInput feeds a user turn into a session. Never blocks on the
// continuation; results arrive asynchronously through the loop.
func (h *Handler) OnUserInput(sessionID, text string) {
	h.post(func() { h.onUserInput(sessionID, text) })
}

func (h *Handler) onUserInput(sessionID, text string) {
	log := logging.Get(logging.CategorySession)

	session, ok := h.sessions[sessionID]
	if !ok {
		log.Errorw("input for unknown session", "session", sessionID)
		return
	}
	if session.Status != types.StatusActive {
		log.Warnw("input for inactive session ignored", "session", sessionID, "status", session.Status)
		return
	}
	if h.inflight[sessionID] {
		log.Warnw("continuation already in flight, input rejected", "session", sessionID)
		return
	}

	if strings.EqualFold(strings.TrimSpace(text), finishCommand) {
		log.Infow("finish command received", "session", sessionID)
		session.AppendMessage(
			types.TextMessage(types.RoleUser, finishCommand),
			types.TextMessage(types.RoleUser, finishedAnswer),
		)
		h.notifyUpdated(session)
		h.finalize(sessionID)
		return
	}

	if strings.HasPrefix(text, "<||") && strings.HasSuffix(text, "||>") {
		text = buttonMessage(text[3 : len(text)-3])
	}

	session.AppendMessage(
		types.TextMessage(types.RoleUser, text),
		types.TextMessage(types.RoleUser, text),
	)
	h.notifyUpdated(session)

	if !h.shouldContinue(session) {
		log.Infow("turn budget exhausted", "session", sessionID, "max_turns", session.Config.MaxTurns)
		h.finalize(sessionID)
		return
	}
	h.dispatchContinuation(session)
}

// buttonMessage maps a button token's inner text onto the canonical
// phrase the model is prompted with.
func buttonMessage(inner string) string {
	switch strings.ToLower(strings.TrimSpace(inner)) {
	case "yes", "approve", "confirm", "ok":
		return approvedMessage
	case "no", "reject", "dismiss", "cancel":
		return rejectedMessage
	default:
		logging.Get(logging.CategorySession).Warnw("unrecognized button token, kept as-is", "inner", inner)
		return inner
	}
}

// shouldContinue applies the turn budget after the new user turn has
// been appended. 0 never continues, -1 always does.
func (h *Handler) shouldContinue(session *types.Session) bool {
	switch max := session.Config.MaxTurns; {
	case max == 0:
		return false
	case max < 0:
		return true
	default:
		return session.UserTurns() < max
	}
}

// dispatchContinuation starts one background worker for the session.
// The worker gets a snapshot; the live session stays loop-owned.
func (h *Handler) dispatchContinuation(session *types.Session) {
	id := session.Metadata.UUID
	h.inflight[id] = true

	snapshot := session.Clone()
	executor := h.currentExecutor()

	h.workers.Add(1)
	go func() {
		defer h.workers.Done()
		result, err := executor.ExecuteContinue(h.ctx, snapshot)
		h.post(func() { h.applyContinuation(id, result, err) })
	}()
}

func (h *Handler) applyContinuation(sessionID string, result *agent.ContinueResult, err error) {
	log := logging.Get(logging.CategorySession)
	delete(h.inflight, sessionID)

	session, ok := h.sessions[sessionID]
	if !ok {
		log.Warnw("continuation result for unknown session", "session", sessionID)
		return
	}
	if session.Status != types.StatusActive {
		log.Warnw("continuation result for inactive session ignored", "session", sessionID, "status", session.Status)
		return
	}

	if err != nil {
		log.Errorw("continuation failed", "session", sessionID, "error", err)
		errMsg := types.TextMessage(types.RoleAssistant, fmt.Sprintf("[Error] %v", err))
		session.AppendMessage(errMsg, errMsg)
		session.MarkUnread()
		if serr := session.SetStatus(types.StatusError); serr != nil {
			log.Errorw("failed to mark session errored", "session", sessionID, "error", serr)
		}
		h.cancelTimer(sessionID)
		h.notifyCompleted(session)
		return
	}

	// The LLM transcript's trailing user turn becomes the composed
	// prompt; the UI transcript keeps the plain text.
	session.RewriteLastMessage(result.ComposedUser)
	session.AppendMessage(result.Assistant, result.AssistantClean)
	session.MarkUnread()

	log.Infow("continuation applied", "session", sessionID, "turns", session.UserTurns())
	h.notifyUpdated(session)
}

// finalize completes a session and cancels its timer.
func (h *Handler) finalize(sessionID string) {
	log := logging.Get(logging.CategorySession)

	session, ok := h.sessions[sessionID]
	if !ok {
		log.Warnw("finalize for unknown session", "session", sessionID)
		return
	}
	if err := session.SetStatus(types.StatusCompleted); err != nil {
		log.Warnw("finalize skipped", "session", sessionID, "error", err)
		return
	}
	h.cancelTimer(sessionID)

	log.Infow("session finalized", "session", sessionID)
	h.notifyCompleted(session)
}

// scheduleAutoFinalize arms (or re-arms) the delayed finalize check
// for a Notify session.
func (h *Handler) scheduleAutoFinalize(sessionID string) {
	h.cancelTimer(sessionID)
	delay := h.cfg.AutoFinalizeDelay()
	h.timers[sessionID] = time.AfterFunc(delay, func() {
		h.post(func() { h.tryAutoFinalize(sessionID) })
	})
}

// tryAutoFinalize completes a read session; an unread one is checked
// again after another delay so a notification is never dismissed
// before the user saw it.
func (h *Handler) tryAutoFinalize(sessionID string) {
	session, ok := h.sessions[sessionID]
	if !ok || session.Status != types.StatusActive {
		return
	}
	if session.IsRead {
		h.finalize(sessionID)
		return
	}
	h.scheduleAutoFinalize(sessionID)
}

func (h *Handler) cancelTimer(sessionID string) {
	if timer, ok := h.timers[sessionID]; ok {
		timer.Stop()
		delete(h.timers, sessionID)
	}
}

// Session returns a snapshot of one session.
func (h *Handler) Session(sessionID string) (*types.Session, bool) {
	type reply struct {
		session *types.Session
		ok      bool
	}
	ch := make(chan reply, 1)
	h.post(func() {
		s, ok := h.sessions[sessionID]
		if ok {
			s = s.Clone()
		}
		ch <- reply{s, ok}
	})
	select {
	case r := <-ch:
		return r.session, r.ok
	case <-h.done:
		return nil, false
	}
}

// Sessions returns snapshots of all known sessions.
func (h *Handler) Sessions() []*types.Session {
	ch := make(chan []*types.Session, 1)
	h.post(func() {
		out := make([]*types.Session, 0, len(h.sessions))
		for _, s := range h.sessions {
			out = append(out, s.Clone())
		}
		ch <- out
	})
	select {
	case out := <-ch:
		return out
	case <-h.done:
		return nil
	}
}

func (h *Handler) notifyUpdated(session *types.Session) {
	if h.listener != nil {
		h.listener.SessionUpdated(session.Clone())
	}
}

func (h *Handler) notifyCompleted(session *types.Session) {
	if h.listener != nil {
		h.listener.SessionCompleted(session.Clone())
	}
}
