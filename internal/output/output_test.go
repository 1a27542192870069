package output

import (
	"testing"
	"time"

	"contextos/internal/agent"
	"contextos/internal/config"
	"contextos/internal/types"
)

func sampleResult() *agent.Result {
	return &agent.Result{
		SystemPrompt: "you are an agent",
		UserTurn:     types.TextMessage(types.RoleUser, "composed prompt with history"),
		Assistant:    `<action>finish(result="bonjour")</action>`,
		FinalAnswer:  "bonjour",
		Iterations:   2,
	}
}

func sampleIntent() *types.Intent {
	return &types.Intent{
		Target:   "translate greeting",
		Source:   "clipboard",
		Context:  types.TextContent("hello"),
		Level:    types.LevelNotify,
		Metadata: types.NewMetadata(),
	}
}

func TestFormatTranscriptsStayLengthLocked(t *testing.T) {
	f := NewFormatter()
	content := f.Format(sampleResult(), sampleIntent())

	if len(content.Messages) != len(content.MessagesToUser) {
		t.Fatalf("transcripts diverge: %d vs %d", len(content.Messages), len(content.MessagesToUser))
	}
	if len(content.Messages) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(content.Messages))
	}
}

func TestFormatCleansUITranscript(t *testing.T) {
	f := NewFormatter()
	content := f.Format(sampleResult(), sampleIntent())

	if content.Messages[2].Text() != `<action>finish(result="bonjour")</action>` {
		t.Errorf("LLM assistant turn = %q", content.Messages[2].Text())
	}
	if content.MessagesToUser[2].Text() != "bonjour" {
		t.Errorf("UI assistant turn = %q", content.MessagesToUser[2].Text())
	}
	if content.MessagesToUser[0].Text() != "" {
		t.Errorf("UI system slot should be empty, got %q", content.MessagesToUser[0].Text())
	}
	if content.MessagesToUser[1].Text() != "hello" {
		t.Errorf("UI user turn = %q", content.MessagesToUser[1].Text())
	}
}

func TestFormatCapitalizesTitle(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"translate greeting", "Translate greeting"},
		{"Été à Paris", "Été à Paris"},
		{"", "Result"},
	}

	f := NewFormatter()
	for _, tt := range tests {
		intent := sampleIntent()
		intent.Target = tt.target
		if got := f.Format(sampleResult(), intent).Title; got != tt.want {
			t.Errorf("title for %q = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestBuildNotifySession(t *testing.T) {
	b := NewSessionBuilder(config.SessionConfig{ReviewMaxTurns: 5})
	content := NewFormatter().Format(sampleResult(), sampleIntent())

	session, err := b.Build(content)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if session.Status != types.StatusPending {
		t.Errorf("Status = %q", session.Status)
	}
	if session.Config.MaxTurns != 0 {
		t.Errorf("Notify MaxTurns = %d, want 0", session.Config.MaxTurns)
	}
	if !session.UI.AutoDismiss || session.UI.Style != "notification" {
		t.Errorf("UI = %+v", session.UI)
	}
	if session.UI.DismissDelay != 10*time.Second {
		t.Errorf("DismissDelay = %v", session.UI.DismissDelay)
	}
	if session.Metadata.Source != "clipboard" {
		t.Errorf("Source = %q", session.Metadata.Source)
	}
}

func TestBuildReviewSession(t *testing.T) {
	b := NewSessionBuilder(config.SessionConfig{ReviewMaxTurns: 5})
	intent := sampleIntent()
	intent.Level = types.LevelReview
	content := NewFormatter().Format(sampleResult(), intent)

	session, err := b.Build(content)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if session.Config.MaxTurns != 5 {
		t.Errorf("Review MaxTurns = %d, want 5", session.Config.MaxTurns)
	}
	if !session.UI.ShowInput || !session.UI.ShowHistory || session.UI.Style != "dialog" {
		t.Errorf("UI = %+v", session.UI)
	}
}

func TestBuildPreservesIntentIdentity(t *testing.T) {
	b := NewSessionBuilder(config.SessionConfig{})
	intent := sampleIntent()
	content := NewFormatter().Format(sampleResult(), intent)

	session, err := b.Build(content)
	if err != nil {
		t.Fatal(err)
	}
	if session.Metadata.IntentUUID != intent.Metadata.UUID {
		t.Error("session should carry the intent UUID")
	}
	if session.Metadata.IntentContext.Text != "hello" {
		t.Errorf("IntentContext = %+v", session.Metadata.IntentContext)
	}
}
