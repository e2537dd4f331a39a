package realtime

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
	"github.com/TESCHEL/agenthq/internal/repository"
	"github.com/TESCHEL/agenthq/internal/repository/memstore"
)

type fakeConn struct {
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-c.incoming:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, data, nil
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) frames() []EventFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventFrame, 0, len(c.written))
	for _, data := range c.written {
		var f EventFrame
		if err := json.Unmarshal(data, &f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

type gatewayFixture struct {
	hub     *Hub
	gateway *Gateway
	member  *auth.Principal
	agents  repository.AgentRepository
	channel *domain.Channel
	foreign *domain.Channel
	ws      *domain.Workspace
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	ctx := context.Background()
	repos := memstore.New().Repositories()

	human := &domain.Human{Email: "ada@example.com", Name: "Ada"}
	require.NoError(t, repos.Humans.Create(ctx, human))
	other := &domain.Human{Email: "eve@example.com", Name: "Eve"}
	require.NoError(t, repos.Humans.Create(ctx, other))

	ws := &domain.Workspace{Name: "Acme", Slug: "acme"}
	require.NoError(t, repos.Workspaces.CreateWithOwner(ctx, ws, human.ID))
	otherWS := &domain.Workspace{Name: "Other", Slug: "other"}
	require.NoError(t, repos.Workspaces.CreateWithOwner(ctx, otherWS, other.ID))

	channel := &domain.Channel{WorkspaceID: ws.ID, Name: "general"}
	require.NoError(t, repos.Channels.Create(ctx, channel))
	foreign := &domain.Channel{WorkspaceID: otherWS.ID, Name: "secret"}
	require.NoError(t, repos.Channels.Create(ctx, foreign))

	hub := NewHub(nil, nil)
	access := auth.NewAccessChecker(repos.Workspaces, repos.Channels, repos.Handoffs, repos.Agents)
	return &gatewayFixture{
		hub:     hub,
		gateway: NewGateway(hub, nil, access, config.RealtimeConfig{}, nil),
		member:  auth.HumanPrincipal(human),
		agents:  repos.Agents,
		channel: channel,
		foreign: foreign,
		ws:      ws,
	}
}

func serve(f *gatewayFixture, conn *fakeConn, principal *auth.Principal) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.gateway.Serve(conn, principal)
	}()
	return done
}

func TestGatewayJoinPublishAndDisconnect(t *testing.T) {
	f := newGatewayFixture(t)
	conn := newFakeConn()
	done := serve(f, conn, f.member)

	conn.incoming <- []byte(`garbage`)
	conn.incoming <- []byte(`{"type":"join_channel"}`)
	conn.incoming <- []byte(`{"type":"join_channel","channel_id":"` + f.foreign.ID + `"}`)
	conn.incoming <- []byte(`{"type":"join_channel","channel_id":"` + f.channel.ID + `"}`)
	conn.incoming <- []byte(`{"type":"join_workspace","workspace_id":"` + f.ws.ID + `"}`)

	require.Eventually(t, func() bool {
		return f.hub.RoomSize(WorkspaceRoom(f.ws.ID)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.hub.RoomSize(ChannelRoom(f.channel.ID)))
	assert.Equal(t, 0, f.hub.RoomSize(ChannelRoom(f.foreign.ID)), "join to a foreign workspace is dropped")

	bridge := NewBridge(f.hub, nil)
	dispatcher := events.NewInMemoryDispatcher(nil)
	bridge.RegisterHandlers(dispatcher)
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventMessageCreated,
		RoomKind: domain.RoomChannel,
		RoomID:   f.channel.ID,
		Payload:  map[string]string{"content": "hi"},
	}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventMessageCreated,
		RoomKind: domain.RoomChannel,
		RoomID:   f.foreign.ID,
	}))

	require.Eventually(t, func() bool { return len(conn.frames()) == 1 }, time.Second, 5*time.Millisecond)
	frame := conn.frames()[0]
	assert.Equal(t, "message.created", frame.Type)
	assert.Equal(t, f.channel.ID, frame.ChannelID)

	conn.incoming <- []byte(`{"type":"leave_channel","channel_id":"` + f.channel.ID + `"}`)
	require.Eventually(t, func() bool {
		return f.hub.RoomSize(ChannelRoom(f.channel.ID)) == 0
	}, time.Second, 5*time.Millisecond)

	close(conn.incoming)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("gateway did not return after disconnect")
	}
	assert.Equal(t, 0, f.hub.SessionCount())
	assert.Equal(t, 0, f.hub.RoomSize(WorkspaceRoom(f.ws.ID)))
}

func TestGatewayAnonymousSessionCannotJoin(t *testing.T) {
	f := newGatewayFixture(t)
	conn := newFakeConn()
	done := serve(f, conn, nil)

	require.Eventually(t, func() bool { return f.hub.SessionCount() == 1 }, time.Second, 5*time.Millisecond)
	conn.incoming <- []byte(`{"type":"join_channel","channel_id":"` + f.channel.ID + `"}`)
	conn.incoming <- []byte(`{"type":"leave_channel","channel_id":"` + f.channel.ID + `"}`)

	_ = conn.Close()
	<-done
	assert.Equal(t, 0, f.hub.RoomSize(ChannelRoom(f.channel.ID)))
	assert.Equal(t, 0, f.hub.SessionCount())
}

func TestGatewayRejectsJoinAfterAgentDeactivation(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()
	agent := &domain.Agent{WorkspaceID: f.ws.ID, Name: "triage-bot", APIKey: "ahq_test", IsActive: true}
	require.NoError(t, f.agents.Create(ctx, agent))

	conn := newFakeConn()
	done := serve(f, conn, auth.AgentPrincipal(agent))

	conn.incoming <- []byte(`{"type":"join_channel","channel_id":"` + f.channel.ID + `"}`)
	require.Eventually(t, func() bool {
		return f.hub.RoomSize(ChannelRoom(f.channel.ID)) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.agents.SetActive(ctx, agent.ID, false))

	conn.incoming <- []byte(`{"type":"join_workspace","workspace_id":"` + f.ws.ID + `"}`)
	conn.incoming <- []byte(`{"type":"leave_channel","channel_id":"` + f.channel.ID + `"}`)
	require.Eventually(t, func() bool {
		return f.hub.RoomSize(ChannelRoom(f.channel.ID)) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.hub.RoomSize(WorkspaceRoom(f.ws.ID)), "deactivated agent cannot join")

	_ = conn.Close()
	<-done
}

func TestDisconnectAgentEndsItsSessions(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()
	agent := &domain.Agent{WorkspaceID: f.ws.ID, Name: "triage-bot", APIKey: "ahq_test", IsActive: true}
	require.NoError(t, f.agents.Create(ctx, agent))

	agentConn, humanConn := newFakeConn(), newFakeConn()
	agentDone := serve(f, agentConn, auth.AgentPrincipal(agent))
	humanDone := serve(f, humanConn, f.member)

	agentConn.incoming <- []byte(`{"type":"join_workspace","workspace_id":"` + f.ws.ID + `"}`)
	humanConn.incoming <- []byte(`{"type":"join_workspace","workspace_id":"` + f.ws.ID + `"}`)
	require.Eventually(t, func() bool {
		return f.hub.RoomSize(WorkspaceRoom(f.ws.ID)) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, f.hub.DisconnectAgent(agent.ID))
	assert.Equal(t, 1, f.hub.RoomSize(WorkspaceRoom(f.ws.ID)))
	assert.Equal(t, 1, f.hub.SessionCount())

	_ = agentConn.Close()
	<-agentDone
	_ = humanConn.Close()
	<-humanDone
	assert.Equal(t, 0, f.hub.SessionCount())
}
