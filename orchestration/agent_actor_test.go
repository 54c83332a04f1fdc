package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke-dev/convoke/core"
	"github.com/convoke-dev/convoke/observe"
	"github.com/convoke-dev/convoke/runtime"
)

// recordingBus captures published envelopes for inspection.
type recordingBus struct {
	mu        sync.Mutex
	published []core.Envelope
}

var _ runtime.Bus = (*recordingBus)(nil)

func (b *recordingBus) Subscribe(string, runtime.Handler) (runtime.Subscription, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBus) Publish(_ context.Context, _ string, env core.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, env)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) envelopes() []core.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Envelope(nil), b.published...)
}

// streamer is a fakeParticipant with a streaming path.
type streamer struct {
	fakeParticipant
	chunks []string
}

var _ core.StreamingParticipant = (*streamer)(nil)

func (s *streamer) InvokeStreaming(_ context.Context, _ []core.ChatMessage) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		for _, c := range s.chunks {
			out <- c
		}
		errs <- nil
	}()
	return out, errs
}

func TestAgentActor_MaintainsPrivateView(t *testing.T) {
	bus := &recordingBus{}
	coder := &fakeParticipant{name: "coder", desc: "writes code"}
	actor := NewAgentActor(coder, bus, "runs/test", nil, nil, nil, nil)

	ctx := context.Background()
	task := core.NewUserMessage("build it")

	actor.Handle(ctx, core.StartMessage{Body: task})
	actor.Handle(ctx, core.ResponseMessage{Body: core.NewSystemMessage("the plan")})
	actor.Handle(ctx, core.ResponseMessage{Body: core.NewAssistantMessage(DefaultManagerName, "start with tests")})
	actor.Handle(ctx, core.RequestMessage{AgentName: "coder"})

	require.Equal(t, 1, coder.invocations())
	seen := coder.transcript(0)
	require.Len(t, seen, 3)
	assert.Equal(t, "build it", seen[0].Content)
	assert.Equal(t, "the plan", seen[1].Content)
	assert.Equal(t, "start with tests", seen[2].Content)

	published := bus.envelopes()
	require.Len(t, published, 1)
	resp, ok := published[0].(core.ResponseMessage)
	require.True(t, ok)
	assert.Equal(t, "coder reply 1", resp.Body.Content)
	assert.Equal(t, "coder", resp.Body.Name)
}

// systemRoleParticipant answers with a system-role message, exercising the
// role normalization on the reply path.
type systemRoleParticipant struct {
	name string
}

func (p *systemRoleParticipant) Name() string        { return p.name }
func (p *systemRoleParticipant) Description() string { return "reports status" }

func (p *systemRoleParticipant) Invoke(context.Context, []core.ChatMessage) (core.ChatMessage, error) {
	return core.ChatMessage{Role: core.RoleSystem, Content: "status report"}, nil
}

func TestAgentActor_NormalizesReplyRoleToAssistant(t *testing.T) {
	bus := &recordingBus{}
	actor := NewAgentActor(&systemRoleParticipant{name: "coder"}, bus, "runs/test", nil, nil, nil, nil)

	ctx := context.Background()
	actor.Handle(ctx, core.StartMessage{Body: core.NewUserMessage("build it")})
	actor.Handle(ctx, core.RequestMessage{AgentName: "coder"})

	published := bus.envelopes()
	require.Len(t, published, 1)
	reply := published[0].(core.ResponseMessage).Body
	assert.Equal(t, core.RoleAssistant, reply.Role,
		"system-role replies would be mistaken for manager echoes")
	assert.Equal(t, "coder", reply.Name)
	assert.Equal(t, "status report", reply.Content)
}

func TestAgentActor_ResponseCallbackSeesCompletedTurn(t *testing.T) {
	bus := &recordingBus{}
	coder := &fakeParticipant{name: "coder", desc: "writes code"}

	var mu sync.Mutex
	var got []core.ChatMessage
	onResponse := func(_ string, msg core.ChatMessage) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
	}
	actor := NewAgentActor(coder, bus, "runs/test", nil, nil, nil, onResponse)

	ctx := context.Background()
	actor.Handle(ctx, core.StartMessage{Body: core.NewUserMessage("build it")})
	actor.Handle(ctx, core.RequestMessage{AgentName: "coder"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "coder reply 1", got[0].Content)
}

func TestAgentActor_IgnoresRequestsForOthers(t *testing.T) {
	bus := &recordingBus{}
	coder := &fakeParticipant{name: "coder", desc: "writes code"}
	actor := NewAgentActor(coder, bus, "runs/test", nil, nil, nil, nil)

	ctx := context.Background()
	actor.Handle(ctx, core.StartMessage{Body: core.NewUserMessage("build it")})
	actor.Handle(ctx, core.RequestMessage{AgentName: "critic"})

	assert.Equal(t, 0, coder.invocations())
	assert.Empty(t, bus.envelopes())
}

func TestAgentActor_ResetCollapsesViewToTask(t *testing.T) {
	bus := &recordingBus{}
	coder := &fakeParticipant{name: "coder", desc: "writes code"}
	actor := NewAgentActor(coder, bus, "runs/test", nil, nil, nil, nil)

	ctx := context.Background()
	task := core.NewUserMessage("build it")
	actor.Handle(ctx, core.StartMessage{Body: task})
	actor.Handle(ctx, core.ResponseMessage{Body: core.NewSystemMessage("the plan")})
	actor.Handle(ctx, core.ResponseMessage{Body: core.NewAssistantMessage("critic", "redo everything")})
	actor.Handle(ctx, core.ResetMessage{})
	actor.Handle(ctx, core.RequestMessage{AgentName: "coder"})

	require.Equal(t, 1, coder.invocations())
	seen := coder.transcript(0)
	require.Len(t, seen, 1)
	assert.Equal(t, "build it", seen[0].Content)
}

func TestAgentActor_InvocationFailurePublishesNothing(t *testing.T) {
	bus := &recordingBus{}
	collector := observe.NewCollectorSink()
	hook := observe.NewHook(collector, 16)
	coder := &fakeParticipant{name: "coder", desc: "writes code", err: errors.New("tool crashed")}
	actor := NewAgentActor(coder, bus, "runs/test", hook, nil, nil, nil)

	ctx := context.Background()
	actor.Handle(ctx, core.StartMessage{Body: core.NewUserMessage("build it")})
	actor.Handle(ctx, core.RequestMessage{AgentName: "coder"})
	hook.Close()

	assert.Empty(t, bus.envelopes())

	events := collector.All()
	require.Len(t, events, 1)
	assert.Equal(t, observe.KindError, events[0].Kind)
	assert.Equal(t, "coder", events[0].Source)
}

func TestAgentActor_StreamingAssemblesChunks(t *testing.T) {
	bus := &recordingBus{}
	s := &streamer{
		fakeParticipant: fakeParticipant{name: "narrator", desc: "streams prose"},
		chunks:          []string{"once ", "upon ", "a time"},
	}

	var mu sync.Mutex
	var streamed []string
	onStream := func(agent, chunk string) {
		mu.Lock()
		defer mu.Unlock()
		streamed = append(streamed, agent+":"+chunk)
	}

	actor := NewAgentActor(s, bus, "runs/test", nil, nil, onStream, nil)

	ctx := context.Background()
	actor.Handle(ctx, core.StartMessage{Body: core.NewUserMessage("tell a story")})
	actor.Handle(ctx, core.RequestMessage{AgentName: "narrator"})

	mu.Lock()
	assert.Equal(t, []string{"narrator:once ", "narrator:upon ", "narrator:a time"}, streamed)
	mu.Unlock()

	published := bus.envelopes()
	require.Len(t, published, 1)
	resp := published[0].(core.ResponseMessage)
	assert.Equal(t, "once upon a time", resp.Body.Content)
	assert.Equal(t, "narrator", resp.Body.Name)
}

func TestAgentActor_FallsBackToInvokeWithoutStreamCallback(t *testing.T) {
	bus := &recordingBus{}
	s := &streamer{
		fakeParticipant: fakeParticipant{name: "narrator", desc: "streams prose"},
		chunks:          []string{"never used"},
	}
	actor := NewAgentActor(s, bus, "runs/test", nil, nil, nil, nil)

	ctx := context.Background()
	actor.Handle(ctx, core.StartMessage{Body: core.NewUserMessage("tell a story")})
	actor.Handle(ctx, core.RequestMessage{AgentName: "narrator"})

	assert.Equal(t, 1, s.invocations(), "non-streaming Invoke should be used")
	published := bus.envelopes()
	require.Len(t, published, 1)
	assert.Equal(t, "narrator reply 1", published[0].(core.ResponseMessage).Body.Content)
}
