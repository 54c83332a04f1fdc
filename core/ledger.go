package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TaskLedger is the manager's running written record for the task: the facts
// it has gathered or assumed, and the current delegation plan. It is produced
// by Plan, refreshed by Replan, and persists across inner-loop rounds.
type TaskLedger struct {
	Facts ChatMessage `json:"facts"`
	Plan  ChatMessage `json:"plan"`
}

// BoolEntry pairs a boolean judgment with the manager's free-text reason.
// Unmarshalling tolerates the quoted forms "true"/"false" which language
// models frequently emit instead of JSON booleans.
type BoolEntry struct {
	Answer bool   `json:"answer"`
	Reason string `json:"reason"`
}

// UnmarshalJSON implements tolerant decoding of the answer field.
func (e *BoolEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Answer json.RawMessage `json:"answer"`
		Reason string          `json:"reason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Reason = raw.Reason

	if len(raw.Answer) == 0 {
		return nil
	}

	var b bool
	if err := json.Unmarshal(raw.Answer, &b); err == nil {
		e.Answer = b
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.Answer, &s); err == nil {
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return fmt.Errorf("boolean ledger answer %q: %w", s, err)
		}
		e.Answer = b
		return nil
	}

	return fmt.Errorf("ledger answer %s is neither bool nor string", raw.Answer)
}

// StringEntry pairs a textual judgment (a participant name or an instruction)
// with the manager's free-text reason.
type StringEntry struct {
	Answer string `json:"answer"`
	Reason string `json:"reason"`
}

// ProgressLedger is the manager's per-round structured judgment of task
// state. It is ephemeral: recomputed every round and never persisted across
// rounds.
type ProgressLedger struct {
	// IsRequestSatisfied reports whether the task is complete.
	IsRequestSatisfied BoolEntry `json:"is_request_satisfied"`
	// IsInLoop reports whether the conversation is cycling without new
	// information.
	IsInLoop BoolEntry `json:"is_in_loop"`
	// IsProgressBeingMade reports whether forward progress is occurring.
	IsProgressBeingMade BoolEntry `json:"is_progress_being_made"`
	// NextSpeaker names the participant that should take the next turn.
	// Must be a roster key or the round fails validation.
	NextSpeaker StringEntry `json:"next_speaker"`
	// InstructionOrQuestion is the text to send to the next speaker.
	InstructionOrQuestion StringEntry `json:"instruction_or_question"`
}

// Stalled reports whether this round counts toward the stall threshold.
func (pl ProgressLedger) Stalled() bool {
	return pl.IsInLoop.Answer || !pl.IsProgressBeingMade.Answer
}
