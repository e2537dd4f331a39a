package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
	"github.com/TESCHEL/agenthq/internal/repository/memstore"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range r.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repos      memstore.Repositories
	clock      *clock
	recorded   *recorder
	dispatcher events.Dispatcher
	access     *auth.AccessChecker

	auth       *AuthService
	workspaces *WorkspaceService
	messages   *MessageService
	handoffs   *HandoffService
	memories   *MemoryService

	owner    *auth.Principal
	outsider *auth.Principal
	agent    *auth.Principal
	ws       *domain.Workspace
	otherWS  *domain.Workspace
	channel  *domain.Channel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	c := &clock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	store.SetClock(c.Now)
	repos := store.Repositories()

	f := &fixture{
		repos:      repos,
		clock:      c,
		recorded:   &recorder{},
		dispatcher: events.NewInMemoryDispatcher(nil),
	}
	for _, et := range []events.EventType{events.EventMessageCreated, events.EventHandoffCreated, events.EventHandoffUpdated} {
		f.dispatcher.Subscribe(et, f.recorded.handle)
	}
	f.access = auth.NewAccessChecker(repos.Workspaces, repos.Channels, repos.Handoffs, repos.Agents)

	cfg := config.Defaults()
	cfg.Auth.BcryptCost = 4
	f.auth = NewAuthService(cfg.Auth, repos.Humans, auth.NewTokenManager("secret", time.Hour))
	f.workspaces = NewWorkspaceService(WorkspaceDependencies{
		WorkspaceRepo:  repos.Workspaces,
		HumanRepo:      repos.Humans,
		ChannelRepo:    repos.Channels,
		AgentRepo:      repos.Agents,
		Access:         f.access,
		AgentKeyPrefix: cfg.Auth.AgentKeyPrefix,
	})
	f.messages = NewMessageService(MessageDependencies{
		MessageRepo: repos.Messages,
		ChannelRepo: repos.Channels,
		Access:      f.access,
		Dispatcher:  f.dispatcher,
		Clock:       c.Now,
	})
	f.handoffs = NewHandoffService(HandoffDependencies{
		HandoffRepo:   repos.Handoffs,
		WorkspaceRepo: repos.Workspaces,
		ChannelRepo:   repos.Channels,
		AgentRepo:     repos.Agents,
		Access:        f.access,
		Messages:      f.messages,
		Dispatcher:    f.dispatcher,
		Clock:         c.Now,
	})
	f.memories = NewMemoryService(repos.Memories, c.Now)

	owner, _, err := f.auth.Register(ctx, "Ada", "ada@example.com", "correct horse")
	require.NoError(t, err)
	outsider, _, err := f.auth.Register(ctx, "Eve", "eve@example.com", "correct horse")
	require.NoError(t, err)
	f.owner = auth.HumanPrincipal(owner)
	f.outsider = auth.HumanPrincipal(outsider)

	f.ws, err = f.workspaces.Create(ctx, f.owner, "Acme Corp", "")
	require.NoError(t, err)
	f.otherWS, err = f.workspaces.Create(ctx, f.outsider, "Other", "other")
	require.NoError(t, err)

	f.channel, err = f.workspaces.CreateChannel(ctx, f.owner, f.ws.ID, ChannelInput{Name: "general"})
	require.NoError(t, err)

	agent, err := f.workspaces.CreateAgent(ctx, f.owner, f.ws.ID, "triage-bot")
	require.NoError(t, err)
	f.agent = auth.AgentPrincipal(agent)
	return f
}
