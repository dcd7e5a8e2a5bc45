package bots

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gametypes "github.com/aym-n/SneakByte/pkg/game/types"
	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/messages"
	"github.com/aym-n/SneakByte/pkg/registry"
	"nhooyr.io/websocket"
)

const dialTimeout = 5 * time.Second

// Hooks are the capability hooks a connection owner registers once at
// connect time.
type Hooks struct {
	// OnMove is called with each well-formed move response.
	OnMove func(direction gametypes.Direction)
	// OnClosed is called once when the channel closes or fails. It is not
	// called for a locally initiated Close.
	OnClosed func()
}

// StateSource supplies the most recent game state snapshot, if any.
type StateSource interface {
	Latest() (gametypes.GameState, bool)
}

// socket is the reliable in-order message channel under a Connection.
type socket interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// wsSocket adapts a websocket connection to the socket interface.
type wsSocket struct {
	conn *websocket.Conn
}

func (s *wsSocket) ReadMessage(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *wsSocket) WriteMessage(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSocket) Close(code websocket.StatusCode, reason string) error {
	return s.conn.Close(code, reason)
}

// Connection is a live channel to one bot for the duration of a session,
// tagged with its player slot. It owns the periodic move-request timer.
type Connection struct {
	record    registry.BotRecord
	playerNum int
	sock      socket
	source    StateSource
	hooks     Hooks
	interval  time.Duration

	cancel    context.CancelFunc
	writeLock sync.Mutex
	closeOnce sync.Once

	closingLock sync.Mutex
	closing     bool
}

// Record returns the bot record this connection is bound to.
func (c *Connection) Record() registry.BotRecord {
	return c.record
}

// Dialer opens connections to bots.
type Dialer struct {
	gridSize     int
	gameSpeed    int
	moveInterval time.Duration
}

type NewDialerOptions struct {
	GridSize     int
	GameSpeed    int
	MoveInterval time.Duration
}

// NewDialer creates a new Dialer.
func NewDialer(opts NewDialerOptions) *Dialer {
	return &Dialer{
		gridSize:     opts.GridSize,
		gameSpeed:    opts.GameSpeed,
		moveInterval: opts.MoveInterval,
	}
}

// Connect opens a channel to the bot's endpoint, sends the configuration
// message for the given player slot, and starts the read and move-request
// loops. Hooks are registered here and never change for the lifetime of the
// connection.
func (d *Dialer) Connect(ctx context.Context, record registry.BotRecord, playerNum int, source StateSource, hooks Hooks) (*Connection, error) {
	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	defer dialCancel()

	wsConn, _, err := websocket.Dial(dialCtx, record.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bot %s at %s: %v", record.Name, record.Endpoint, err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	conn := &Connection{
		record:    record,
		playerNum: playerNum,
		sock:      &wsSocket{conn: wsConn},
		source:    source,
		hooks:     hooks,
		interval:  d.moveInterval,
		cancel:    cancel,
	}

	config := &messages.GameConfig{
		Type:      messages.MessageTypeGameConfig,
		PlayerNum: playerNum,
		GridSize:  d.gridSize,
		GameSpeed: d.gameSpeed,
	}
	if err := conn.send(connCtx, config); err != nil {
		cancel()
		wsConn.Close(websocket.StatusInternalError, "config failed")
		return nil, fmt.Errorf("failed to send game config to bot %s: %v", record.Name, err)
	}

	go conn.readLoop(connCtx)
	go conn.moveLoop(connCtx)

	log.Info("Connected to bot %s (%s) as player %d", record.Name, record.ID, playerNum)

	return conn, nil
}

// Close stops the move timer, sends a best-effort final notice to the bot,
// and releases the channel. It is safe to call more than once.
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closingLock.Lock()
		c.closing = true
		c.closingLock.Unlock()

		c.cancel()

		// Best-effort final notice; failure to notify is swallowed.
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), time.Second)
		defer notifyCancel()
		ended := &messages.GameEnded{
			Type:   messages.MessageTypeGameEnded,
			Reason: reason,
		}
		if err := c.send(notifyCtx, ended); err != nil {
			log.Debug("Failed to notify bot %s of game end: %v", c.record.Name, err)
		}

		if err := c.sock.Close(websocket.StatusNormalClosure, "game ended"); err != nil {
			log.Debug("Failed to close channel to bot %s: %v", c.record.Name, err)
		}
	})
}

func (c *Connection) isClosing() bool {
	c.closingLock.Lock()
	defer c.closingLock.Unlock()
	return c.closing
}

func (c *Connection) readLoop(ctx context.Context) {
	for {
		data, err := c.sock.ReadMessage(ctx)
		if err != nil {
			if !c.isClosing() {
				log.Warn("Channel to bot %s closed: %v", c.record.Name, err)
				if c.hooks.OnClosed != nil {
					c.hooks.OnClosed()
				}
			}
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage forwards well-formed move responses upward. Anything else is
// logged and ignored.
func (c *Connection) handleMessage(data []byte) {
	messageType, err := messages.PeekType(data)
	if err != nil {
		log.Warn("Malformed message from bot %s: %v", c.record.Name, err)
		return
	}
	if messageType != messages.MessageTypeMoveResponse {
		log.Debug("Ignoring message of type %s from bot %s", messageType, c.record.Name)
		return
	}

	response := &messages.MoveResponse{}
	if err := json.Unmarshal(data, response); err != nil {
		log.Warn("Malformed move response from bot %s: %v", c.record.Name, err)
		return
	}
	if !response.Direction.IsValid() {
		log.Warn("Invalid direction %q from bot %s", response.Direction, c.record.Name)
		return
	}

	if c.hooks.OnMove != nil {
		c.hooks.OnMove(response.Direction)
	}
}

func (c *Connection) moveLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.requestMove(ctx)
		}
	}
}

// requestMove sends one move request with the latest snapshot. The tick is
// skipped when no snapshot has arrived yet.
func (c *Connection) requestMove(ctx context.Context) {
	state, ok := c.source.Latest()
	if !ok {
		return
	}
	request := buildMoveRequest(state, c.playerNum)
	if err := c.send(ctx, request); err != nil {
		log.Warn("Failed to send move request to bot %s: %v", c.record.Name, err)
	}
}

func (c *Connection) send(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %v", err)
	}
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if err := c.sock.WriteMessage(ctx, data); err != nil {
		return fmt.Errorf("failed to write message: %v", err)
	}
	return nil
}

// buildMoveRequest orients the snapshot so the bot always sees itself as
// "my snake" regardless of slot.
func buildMoveRequest(state gametypes.GameState, playerNum int) *messages.MoveRequest {
	request := &messages.MoveRequest{
		Type:  messages.MessageTypeMoveRequest,
		Food:  state.Food,
		Timer: state.Timer,
	}
	if playerNum == 1 {
		request.MySnake = state.Snake1
		request.OpponentSnake = state.Snake2
		request.MyScore = state.Score1
		request.OpponentScore = state.Score2
	} else {
		request.MySnake = state.Snake2
		request.OpponentSnake = state.Snake1
		request.MyScore = state.Score2
		request.OpponentScore = state.Score1
	}
	return request
}
