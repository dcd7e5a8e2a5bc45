package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/aym-n/SneakByte/pkg/bots"
	gametypes "github.com/aym-n/SneakByte/pkg/game/types"
	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/queue"
	"github.com/aym-n/SneakByte/pkg/registry"
	"github.com/aym-n/SneakByte/pkg/workers"
	"github.com/google/uuid"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Conn is the session's view of a live bot channel.
type Conn interface {
	Record() registry.BotRecord
	Close(reason string)
}

// Connector opens a channel to a bot for the given player slot.
type Connector interface {
	Connect(ctx context.Context, record registry.BotRecord, playerNum int, source bots.StateSource, hooks bots.Hooks) (Conn, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, record registry.BotRecord, playerNum int, source bots.StateSource, hooks bots.Hooks) (Conn, error)

func (f ConnectorFunc) Connect(ctx context.Context, record registry.BotRecord, playerNum int, source bots.StateSource, hooks bots.Hooks) (Conn, error) {
	return f(ctx, record, playerNum, source, hooks)
}

// Discovery is the broadcast cycle the session pauses while a game runs.
type Discovery interface {
	Pause()
	Resume()
}

// Notifier receives session lifecycle and move events for the operator.
type Notifier interface {
	GameStarted(names []string, ids []string)
	GameStartError(message string)
	GameEnded(reason string)
	BotMove(botID string, direction gametypes.Direction)
}

// Manager is the session state machine. It owns the two active bot
// connections and the latest game state received from the rule engine. Every
// event runs to completion under one lock before the next is processed, so
// arbitrary interleavings of bot, frontend, and timer events are safe.
type Manager struct {
	registry  *registry.BotRegistry
	discovery Discovery
	connector Connector
	results   queue.Queue

	lock     sync.Mutex
	notifier Notifier
	state    State
	conns    [2]Conn
	latest   *gametypes.GameState
	lastIDs  []string
}

type NewManagerOptions struct {
	Registry  *registry.BotRegistry
	Discovery Discovery
	Connector Connector
	Results   queue.Queue
}

// NewManager creates a new session Manager in the idle state.
func NewManager(opts NewManagerOptions) *Manager {
	return &Manager{
		registry:  opts.Registry,
		discovery: opts.Discovery,
		connector: opts.Connector,
		results:   opts.Results,
		state:     StateIdle,
	}
}

// SetNotifier wires the frontend event sink. Must be called before any
// command is dispatched.
func (m *Manager) SetNotifier(notifier Notifier) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.notifier = notifier
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Latest returns a copy of the most recent game state snapshot. It
// implements bots.StateSource for the move-request timers.
func (m *Manager) Latest() (gametypes.GameState, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.latest == nil {
		return gametypes.GameState{}, false
	}
	return *m.latest, true
}

// StartGame resolves both bot IDs, tears down any prior session, pauses
// discovery, and opens connections in slots 1 and 2. On any resolution or
// connection failure the session remains (or returns to) idle and a
// start-error event is emitted; a session never holds a single connection.
func (m *Manager) StartGame(botID1, botID2 string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.startLocked(botID1, botID2)
}

// Reconnect re-establishes a pairing for a frontend that reloaded. The
// effect is identical to StartGame.
func (m *Manager) Reconnect(botID1, botID2 string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.startLocked(botID1, botID2)
}

// RequestNewGame starts a fresh session with the most recently active
// pairing.
func (m *Manager) RequestNewGame() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if len(m.lastIDs) != 2 {
		m.startError("No previous game to restart.")
		return
	}
	m.startLocked(m.lastIDs[0], m.lastIDs[1])
}

func (m *Manager) startLocked(botID1, botID2 string) {
	if botID1 == botID2 {
		m.startError("Two distinct bots are required.")
		return
	}

	record1, ok := m.registry.Get(botID1)
	if !ok {
		m.startError(fmt.Sprintf("Bot %s is not available.", botID1))
		return
	}
	record2, ok := m.registry.Get(botID2)
	if !ok {
		m.startError(fmt.Sprintf("Bot %s is not available.", botID2))
		return
	}

	// Any prior session is released before the new connections are opened.
	m.stopLocked("New game starting.")

	sessionID := uuid.NewString()
	log.Info("Starting session %s: %s vs %s", sessionID, record1.Name, record2.Name)

	m.state = StateConnecting
	m.discovery.Pause()

	conn1, err := m.connect(record1, 1)
	if err != nil {
		log.Error("Failed to connect to bot %s: %v", record1.Name, err)
		m.abortStart(fmt.Sprintf("Could not connect to %s.", record1.Name))
		return
	}
	conn2, err := m.connect(record2, 2)
	if err != nil {
		log.Error("Failed to connect to bot %s: %v", record2.Name, err)
		conn1.Close("Opponent connection failed.")
		m.abortStart(fmt.Sprintf("Could not connect to %s.", record2.Name))
		return
	}

	m.conns = [2]Conn{conn1, conn2}
	m.lastIDs = []string{botID1, botID2}
	m.state = StateActive

	if m.notifier != nil {
		m.notifier.GameStarted(
			[]string{record1.Name, record2.Name},
			[]string{record1.ID, record2.ID},
		)
	}
}

func (m *Manager) connect(record registry.BotRecord, playerNum int) (Conn, error) {
	botID := record.ID
	botName := record.Name
	hooks := bots.Hooks{
		OnMove: func(direction gametypes.Direction) {
			m.handleBotMove(botID, direction)
		},
		OnClosed: func() {
			m.handleBotClosed(botID, botName)
		},
	}
	return m.connector.Connect(context.Background(), record, playerNum, m, hooks)
}

func (m *Manager) abortStart(message string) {
	m.state = StateIdle
	m.discovery.Resume()
	m.startError(message)
}

func (m *Manager) startError(message string) {
	log.Warn("Game start failed: %s", message)
	if m.notifier != nil {
		m.notifier.GameStartError(message)
	}
}

// Stop tears down the current session. It is idempotent: a second call while
// already stopped is a no-op, so simultaneous triggers emit exactly one
// GAME_ENDED event.
func (m *Manager) Stop(reason string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.stopLocked(reason)
}

func (m *Manager) stopLocked(reason string) {
	if m.state != StateActive {
		return
	}
	m.state = StateEnded

	log.Info("Session ended: %s", reason)

	for i, conn := range m.conns {
		if conn != nil {
			conn.Close(reason)
			m.conns[i] = nil
		}
	}
	m.latest = nil

	if m.notifier != nil {
		m.notifier.GameEnded(reason)
	}
	m.discovery.Resume()

	// ENDED is transient; cleanup done, back to idle.
	m.state = StateIdle
}

// HandleGameState overwrites the latest snapshot. Staleness is acceptable; a
// move request simply uses whatever snapshot is most recent.
func (m *Manager) HandleGameState(state gametypes.GameState) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.state != StateActive {
		return
	}
	m.latest = &state
}

// HandleGameOver records the rule engine's declared result and tears the
// session down.
func (m *Manager) HandleGameOver(winner, reason string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.state != StateActive {
		return
	}

	result := &workers.MatchResult{
		Winner: winner,
		Reason: reason,
		Bot1:   m.conns[0].Record(),
		Bot2:   m.conns[1].Record(),
	}
	if m.results != nil {
		if err := m.results.Enqueue(result); err != nil {
			log.Error("Failed to enqueue match result: %v", err)
		}
	}

	m.stopLocked(reason)
}

// handleBotMove forwards a move decision to the frontend. Late responses
// arriving after teardown are dropped here.
func (m *Manager) handleBotMove(botID string, direction gametypes.Direction) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.state != StateActive {
		return
	}
	if m.notifier != nil {
		m.notifier.BotMove(botID, direction)
	}
}

// handleBotClosed tears down the session when a bot's channel is lost. This
// is the primary failure-detection mechanism; there is no separate heartbeat.
func (m *Manager) handleBotClosed(botID, botName string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.state != StateActive {
		return
	}
	log.Warn("Bot %s (%s) disconnected mid-session", botName, botID)
	m.stopLocked(fmt.Sprintf("%s disconnected.", botName))
}

// FrontendDisconnected is invoked when the operator channel closes. The
// session never runs headless; this is treated exactly like an explicit
// cancellation.
func (m *Manager) FrontendDisconnected() {
	m.Stop("frontend disconnected")
}
