package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/convoke-dev/convoke/core"
)

// Completer is the minimal text-generation capability the standard manager
// needs. Given an ordered conversation it returns a single completion.
// Implementations are external collaborators; retry policy for the underlying
// call belongs to them.
type Completer interface {
	Complete(ctx context.Context, messages []core.ChatMessage) (string, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, messages []core.ChatMessage) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, messages []core.ChatMessage) (string, error) {
	return f(ctx, messages)
}

// Options configures a Standard manager.
type Options struct {
	// LedgerRetries is how many completions may be attempted per round to
	// obtain a parsable, valid progress ledger.
	LedgerRetries int
}

// Standard is the prompt-driven core.Manager. It maintains the task ledger
// across rounds, derives it from the task and roster on Plan, refreshes it on
// Replan, and judges progress each round by requesting a JSON ledger from the
// completer.
type Standard struct {
	completer     Completer
	ledgerRetries int

	mu     sync.Mutex
	ledger core.TaskLedger
}

// NewStandard constructs a Standard manager over the given completer.
func NewStandard(completer Completer, optFns ...func(o *Options)) *Standard {
	opts := Options{LedgerRetries: 3}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.LedgerRetries < 1 {
		opts.LedgerRetries = 1
	}

	return &Standard{completer: completer, ledgerRetries: opts.LedgerRetries}
}

// TaskLedger returns the current facts/plan snapshot.
func (s *Standard) TaskLedger() core.TaskLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger
}

func (s *Standard) setLedger(facts, plan core.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = core.TaskLedger{Facts: facts, Plan: plan}
}

// Plan implements core.Manager. It derives the initial fact sheet and
// delegation plan and returns the combined ledger as an opening status
// message for the transcript.
func (s *Standard) Plan(ctx context.Context, rc *core.RunContext) (core.ChatMessage, error) {
	team := formatTeam(rc.Participants)

	conv := []core.ChatMessage{core.NewUserMessage(fmt.Sprintf(factsPrompt, rc.Task.Content))}
	facts, err := s.completer.Complete(ctx, conv)
	if err != nil {
		return core.ChatMessage{}, fmt.Errorf("deriving facts: %w", err)
	}

	conv = append(conv,
		core.NewAssistantMessage("", facts),
		core.NewUserMessage(fmt.Sprintf(planPrompt, team)),
	)
	plan, err := s.completer.Complete(ctx, conv)
	if err != nil {
		return core.ChatMessage{}, fmt.Errorf("deriving plan: %w", err)
	}

	factsMsg := core.NewAssistantMessage("", facts)
	planMsg := core.NewAssistantMessage("", plan)
	s.setLedger(factsMsg, planMsg)

	return s.ledgerMessage(rc, facts, plan), nil
}

// Replan implements core.Manager. It rewrites the fact sheet with everything
// learned so far, derives a fresh plan, and returns the combined ledger.
func (s *Standard) Replan(ctx context.Context, rc *core.RunContext) (core.ChatMessage, error) {
	team := formatTeam(rc.Participants)
	old := s.TaskLedger()

	conv := []core.ChatMessage{
		core.NewUserMessage(formatTranscript(rc.Chat)),
		core.NewUserMessage(fmt.Sprintf(factsUpdatePrompt, rc.Task.Content, old.Facts.Content)),
	}
	facts, err := s.completer.Complete(ctx, conv)
	if err != nil {
		return core.ChatMessage{}, fmt.Errorf("updating facts: %w", err)
	}

	conv = append(conv,
		core.NewAssistantMessage("", facts),
		core.NewUserMessage(fmt.Sprintf(planUpdatePrompt, team)),
	)
	plan, err := s.completer.Complete(ctx, conv)
	if err != nil {
		return core.ChatMessage{}, fmt.Errorf("updating plan: %w", err)
	}

	s.setLedger(core.NewAssistantMessage("", facts), core.NewAssistantMessage("", plan))

	return s.ledgerMessage(rc, facts, plan), nil
}

// CreateProgressLedger implements core.Manager. Parse or validation failures
// are retried up to LedgerRetries completions before the round fails with a
// LedgerError.
func (s *Standard) CreateProgressLedger(ctx context.Context, rc *core.RunContext) (core.ProgressLedger, error) {
	names := formatNames(rc.Participants)
	prompt := fmt.Sprintf(ledgerPrompt, rc.Task.Content, formatTeam(rc.Participants), names, names)

	conv := make([]core.ChatMessage, 0, len(rc.Chat)+1)
	conv = append(conv, rc.Chat...)
	conv = append(conv, core.NewUserMessage(prompt))

	var lastErr error
	for attempt := 0; attempt < s.ledgerRetries; attempt++ {
		raw, err := s.completer.Complete(ctx, conv)
		if err != nil {
			return core.ProgressLedger{}, fmt.Errorf("requesting progress ledger: %w", err)
		}

		ledger, err := parseProgressLedger(raw)
		if err != nil {
			lastErr = err
			continue
		}

		if !ledger.IsRequestSatisfied.Answer {
			if _, ok := rc.Participants[ledger.NextSpeaker.Answer]; !ok {
				lastErr = &core.LedgerError{
					Reason: fmt.Sprintf("next speaker %q is not in the roster", ledger.NextSpeaker.Answer),
				}
				continue
			}
		}

		return ledger, nil
	}

	if lErr, ok := lastErr.(*core.LedgerError); ok {
		return core.ProgressLedger{}, lErr
	}
	return core.ProgressLedger{}, &core.LedgerError{Reason: "unparsable ledger response", Err: lastErr}
}

// PrepareFinalAnswer implements core.Manager. It synthesizes a single user
// facing response from the full transcript.
func (s *Standard) PrepareFinalAnswer(ctx context.Context, rc *core.RunContext) (core.ChatMessage, error) {
	conv := make([]core.ChatMessage, 0, len(rc.Chat)+1)
	conv = append(conv, rc.Chat...)
	conv = append(conv, core.NewUserMessage(fmt.Sprintf(finalAnswerPrompt, rc.Task.Content)))

	answer, err := s.completer.Complete(ctx, conv)
	if err != nil {
		return core.ChatMessage{}, fmt.Errorf("synthesizing final answer: %w", err)
	}

	return core.NewAssistantMessage("", answer), nil
}

// ledgerMessage renders the combined task ledger broadcast to the team after
// planning or replanning.
func (s *Standard) ledgerMessage(rc *core.RunContext, facts, plan string) core.ChatMessage {
	content := fmt.Sprintf(ledgerTemplate, rc.Task.Content, formatTeam(rc.Participants), facts, plan)
	return core.NewSystemMessage(content)
}

// parseProgressLedger extracts and decodes the JSON ledger from a raw
// completion, tolerating fenced code blocks and surrounding prose.
func parseProgressLedger(raw string) (core.ProgressLedger, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return core.ProgressLedger{}, &core.LedgerError{Reason: "no JSON object in response"}
	}

	var ledger core.ProgressLedger
	if err := json.Unmarshal([]byte(payload), &ledger); err != nil {
		return core.ProgressLedger{}, &core.LedgerError{Reason: "malformed ledger JSON", Err: err}
	}

	return ledger, nil
}

// extractJSON returns the outermost JSON object embedded in text, stripping
// Markdown code fences if present.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
