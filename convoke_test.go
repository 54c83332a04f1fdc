package convoke

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke-dev/convoke/config"
	"github.com/convoke-dev/convoke/core"
	"github.com/convoke-dev/convoke/manager"
	"github.com/convoke-dev/convoke/observe"
)

type cannedParticipant struct {
	name  string
	desc  string
	reply string
}

func (p *cannedParticipant) Name() string        { return p.name }
func (p *cannedParticipant) Description() string { return p.desc }

func (p *cannedParticipant) Invoke(context.Context, []core.ChatMessage) (core.ChatMessage, error) {
	return core.NewAssistantMessage(p.name, p.reply), nil
}

func ledgerJSON(satisfied bool, speaker, instruction string) string {
	return fmt.Sprintf(`{
		"is_request_satisfied": {"answer": %t, "reason": "scripted"},
		"is_in_loop": {"answer": false, "reason": "scripted"},
		"is_progress_being_made": {"answer": true, "reason": "scripted"},
		"next_speaker": {"answer": %q, "reason": "scripted"},
		"instruction_or_question": {"answer": %q, "reason": "scripted"}
	}`, satisfied, speaker, instruction)
}

func TestConvoke_EndToEnd(t *testing.T) {
	researcher := &cannedParticipant{
		name:  "researcher",
		desc:  "gathers findings",
		reply: "three sources found",
	}
	writer := &cannedParticipant{
		name:  "writer",
		desc:  "writes prose",
		reply: "summary drafted",
	}

	completer := manager.NewMockCompleter(
		"facts",
		"plan",
		ledgerJSON(false, "researcher", "find sources"),
		ledgerJSON(false, "writer", "summarize them"),
		ledgerJSON(true, "", ""),
		"the finished summary",
	)

	collector := observe.NewCollectorSink()
	mesh, err := New(manager.NewStandard(completer), []core.Participant{researcher, writer},
		func(o *Options) {
			o.Policy = config.Policy{
				MaxStalls:    3,
				MaxResets:    3,
				MaxRounds:    10,
				RoundTimeout: 5 * time.Second,
			}
			o.Sink = collector
			o.ManagerName = "lead"
		})
	require.NoError(t, err)

	result, err := mesh.Run(context.Background(), "summarize the research")
	require.NoError(t, err)

	assert.Equal(t, "the finished summary", result.Answer.Content)
	assert.Equal(t, 2, result.Rounds)
	assert.Equal(t, 0, result.Resets)
	assert.Equal(t, 0, completer.Remaining())

	finals := collector.Events(observe.Filter{Kind: observe.KindFinalAnswer})
	require.Len(t, finals, 1)
	assert.Equal(t, "lead", finals[0].Source)

	// The transcript interleaves instructions and replies after the plan.
	require.Len(t, result.Transcript, 6)
	assert.Equal(t, "find sources", result.Transcript[2].Content)
	assert.Equal(t, "three sources found", result.Transcript[3].Content)
	assert.Equal(t, "summarize them", result.Transcript[4].Content)
	assert.Equal(t, "summary drafted", result.Transcript[5].Content)
}

func TestConvoke_RejectsInvalidSetup(t *testing.T) {
	_, err := New(nil, []core.Participant{&cannedParticipant{name: "x"}})
	assert.Error(t, err)

	_, err = New(manager.NewStandard(manager.NewMockCompleter()), nil)
	assert.Error(t, err)
}
