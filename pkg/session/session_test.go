package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aym-n/SneakByte/pkg/bots"
	gametypes "github.com/aym-n/SneakByte/pkg/game/types"
	"github.com/aym-n/SneakByte/pkg/queue"
	"github.com/aym-n/SneakByte/pkg/registry"
	"github.com/aym-n/SneakByte/pkg/workers"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	record       registry.BotRecord
	hooks        bots.Hooks
	closeReasons []string
}

func (c *fakeConn) Record() registry.BotRecord { return c.record }
func (c *fakeConn) Close(reason string)        { c.closeReasons = append(c.closeReasons, reason) }

type fakeConnector struct {
	conns    []*fakeConn
	failFor  map[string]error
	attempts []string
}

func (f *fakeConnector) Connect(ctx context.Context, record registry.BotRecord, playerNum int, source bots.StateSource, hooks bots.Hooks) (Conn, error) {
	f.attempts = append(f.attempts, record.ID)
	if err, ok := f.failFor[record.ID]; ok {
		return nil, err
	}
	conn := &fakeConn{record: record, hooks: hooks}
	f.conns = append(f.conns, conn)
	return conn, nil
}

type fakeDiscovery struct {
	pauses  int
	resumes int
}

func (d *fakeDiscovery) Pause()  { d.pauses++ }
func (d *fakeDiscovery) Resume() { d.resumes++ }

type notification struct {
	kind    string
	payload string
}

type fakeNotifier struct {
	events []notification
}

func (n *fakeNotifier) GameStarted(names []string, ids []string) {
	n.events = append(n.events, notification{kind: "started", payload: fmt.Sprintf("%v %v", names, ids)})
}

func (n *fakeNotifier) GameStartError(message string) {
	n.events = append(n.events, notification{kind: "startError", payload: message})
}

func (n *fakeNotifier) GameEnded(reason string) {
	n.events = append(n.events, notification{kind: "ended", payload: reason})
}

func (n *fakeNotifier) BotMove(botID string, direction gametypes.Direction) {
	n.events = append(n.events, notification{kind: "move", payload: fmt.Sprintf("%s %s", botID, direction)})
}

func (n *fakeNotifier) byKind(kind string) []notification {
	var matched []notification
	for _, event := range n.events {
		if event.kind == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

type fixture struct {
	manager   *Manager
	registry  *registry.BotRegistry
	connector *fakeConnector
	discovery *fakeDiscovery
	notifier  *fakeNotifier
	results   *queue.InMemoryQueue
}

func newFixture(t *testing.T, botIDs ...string) *fixture {
	t.Helper()
	botRegistry := registry.NewBotRegistry(15 * time.Second)
	for _, id := range botIDs {
		botRegistry.Upsert(id, "Bot "+id, "ws://10.0.0.1:8081/", "10.0.0.1", time.Now())
	}
	connector := &fakeConnector{failFor: make(map[string]error)}
	discovery := &fakeDiscovery{}
	notifier := &fakeNotifier{}
	results := queue.NewInMemoryQueue(10)
	manager := NewManager(NewManagerOptions{
		Registry:  botRegistry,
		Discovery: discovery,
		Connector: connector,
		Results:   results,
	})
	manager.SetNotifier(notifier)
	return &fixture{
		manager:   manager,
		registry:  botRegistry,
		connector: connector,
		discovery: discovery,
		notifier:  notifier,
		results:   results,
	}
}

func TestManager_StartGame(t *testing.T) {
	f := newFixture(t, "a", "b")

	f.manager.StartGame("a", "b")

	assert.Equal(t, StateActive, f.manager.State())
	assert.Equal(t, []string{"a", "b"}, f.connector.attempts)
	assert.Equal(t, 1, f.discovery.pauses)
	assert.Len(t, f.notifier.byKind("started"), 1)
	assert.Empty(t, f.notifier.byKind("startError"))
}

func TestManager_StartGameUnknownBot(t *testing.T) {
	f := newFixture(t, "a")

	f.manager.StartGame("a", "missing")

	assert.Equal(t, StateIdle, f.manager.State())
	assert.Empty(t, f.connector.attempts)
	assert.Equal(t, 0, f.discovery.pauses)
	errors := f.notifier.byKind("startError")
	assert.Len(t, errors, 1)
	assert.Equal(t, "Bot missing is not available.", errors[0].payload)
}

func TestManager_StartGameSameBotTwice(t *testing.T) {
	f := newFixture(t, "a")

	f.manager.StartGame("a", "a")

	assert.Equal(t, StateIdle, f.manager.State())
	assert.Len(t, f.notifier.byKind("startError"), 1)
}

func TestManager_StartGameSecondConnectionFails(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.connector.failFor["b"] = fmt.Errorf("connection refused")

	f.manager.StartGame("a", "b")

	// The session never holds a single connection; the first bot is released
	// and discovery resumes.
	assert.Equal(t, StateIdle, f.manager.State())
	assert.Len(t, f.connector.conns, 1)
	assert.Equal(t, []string{"Opponent connection failed."}, f.connector.conns[0].closeReasons)
	assert.Equal(t, 1, f.discovery.resumes)
	assert.Len(t, f.notifier.byKind("startError"), 1)
}

func TestManager_StopIsIdempotent(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.manager.StartGame("a", "b")

	f.manager.Stop("cancelled")
	f.manager.Stop("cancelled")
	f.manager.FrontendDisconnected()

	assert.Equal(t, StateIdle, f.manager.State())
	assert.Len(t, f.notifier.byKind("ended"), 1)
	assert.Equal(t, 1, f.discovery.resumes)
	for _, conn := range f.connector.conns {
		assert.Len(t, conn.closeReasons, 1)
	}
}

func TestManager_StartGameReplacesPriorSession(t *testing.T) {
	f := newFixture(t, "a", "b", "c")

	f.manager.StartGame("a", "b")
	f.manager.StartGame("a", "c")

	assert.Equal(t, StateActive, f.manager.State())
	assert.Len(t, f.notifier.byKind("ended"), 1)
	assert.Len(t, f.notifier.byKind("started"), 2)
	// First pairing's connections are released when the second starts.
	assert.Equal(t, []string{"New game starting."}, f.connector.conns[0].closeReasons)
	assert.Equal(t, []string{"New game starting."}, f.connector.conns[1].closeReasons)
}

func TestManager_RequestNewGame(t *testing.T) {
	f := newFixture(t, "a", "b")

	f.manager.RequestNewGame()
	errors := f.notifier.byKind("startError")
	assert.Len(t, errors, 1)
	assert.Equal(t, "No previous game to restart.", errors[0].payload)

	f.manager.StartGame("a", "b")
	f.manager.Stop("done")
	f.manager.RequestNewGame()

	assert.Equal(t, StateActive, f.manager.State())
	assert.Equal(t, []string{"a", "b", "a", "b"}, f.connector.attempts)
}

func TestManager_HandleGameState(t *testing.T) {
	f := newFixture(t, "a", "b")

	// Before any game state arrives, move timers have nothing to send.
	_, ok := f.manager.Latest()
	assert.False(t, ok)

	// State updates outside an active session are dropped.
	f.manager.HandleGameState(gametypes.GameState{Timer: 42})
	_, ok = f.manager.Latest()
	assert.False(t, ok)

	f.manager.StartGame("a", "b")
	f.manager.HandleGameState(gametypes.GameState{Timer: 42})
	f.manager.HandleGameState(gametypes.GameState{Timer: 41})

	state, ok := f.manager.Latest()
	assert.True(t, ok)
	assert.Equal(t, 41, state.Timer)

	f.manager.Stop("done")
	_, ok = f.manager.Latest()
	assert.False(t, ok)
}

func TestManager_HandleGameOver(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.manager.StartGame("a", "b")

	f.manager.HandleGameOver(workers.WinnerPlayer1, "Player 2 crashed.")

	assert.Equal(t, StateIdle, f.manager.State())
	pending, err := f.results.ReadAllMessages()
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	result := pending[0].(*workers.MatchResult)
	assert.Equal(t, workers.WinnerPlayer1, result.Winner)
	assert.Equal(t, "a", result.Bot1.ID)
	assert.Equal(t, "b", result.Bot2.ID)

	ended := f.notifier.byKind("ended")
	assert.Len(t, ended, 1)
	assert.Equal(t, "Player 2 crashed.", ended[0].payload)
}

func TestManager_BotMoveForwarding(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.manager.StartGame("a", "b")

	f.connector.conns[0].hooks.OnMove(gametypes.DirectionLeft)
	assert.Equal(t, []notification{{kind: "move", payload: "a LEFT"}}, f.notifier.byKind("move"))

	// A response landing after teardown is dropped.
	f.manager.Stop("done")
	f.connector.conns[1].hooks.OnMove(gametypes.DirectionUp)
	assert.Len(t, f.notifier.byKind("move"), 1)
}

func TestManager_BotDisconnectEndsSession(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.manager.StartGame("a", "b")

	f.connector.conns[1].hooks.OnClosed()

	assert.Equal(t, StateIdle, f.manager.State())
	ended := f.notifier.byKind("ended")
	assert.Len(t, ended, 1)
	assert.Equal(t, "Bot b disconnected.", ended[0].payload)
}
