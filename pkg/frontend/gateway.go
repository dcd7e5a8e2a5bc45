package frontend

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	gametypes "github.com/aym-n/SneakByte/pkg/game/types"
	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/messages"
	"github.com/aym-n/SneakByte/pkg/registry"
	"nhooyr.io/websocket"
)

const sendTimeout = 5 * time.Second

// Controller is the command surface the gateway dispatches to.
type Controller interface {
	StartGame(botID1, botID2 string)
	Reconnect(botID1, botID2 string)
	RequestNewGame()
	Stop(reason string)
	HandleGameState(state gametypes.GameState)
	HandleGameOver(winner, reason string)
	FrontendDisconnected()
}

// Gateway is the single operator control channel. Exactly one connection is
// authoritative at a time; a new connection supersedes the previous one,
// which is closed and loses all command authority. Outbound events are
// dropped silently while no channel is open.
type Gateway struct {
	registry   *registry.BotRegistry
	controller Controller

	lock sync.Mutex
	conn *websocket.Conn
}

type NewGatewayOptions struct {
	Registry   *registry.BotRegistry
	Controller Controller
}

// NewGateway creates a new Gateway.
func NewGateway(opts NewGatewayOptions) *Gateway {
	return &Gateway{
		registry:   opts.Registry,
		controller: opts.Controller,
	}
}

// HandleWS upgrades an operator connection and serves it until it closes.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("Failed to upgrade frontend connection: %v", err)
		return
	}

	log.Info("Frontend connected from %s", r.RemoteAddr)

	g.lock.Lock()
	previous := g.conn
	g.conn = conn
	g.lock.Unlock()

	// The replaced channel loses all authority; closing it unblocks its read
	// loop, which sees it is no longer current and leaves the session alone.
	if previous != nil {
		log.Info("Frontend connection superseded")
		previous.Close(websocket.StatusPolicyViolation, "superseded by a new connection")
	}

	// The frontend gets the current registry snapshot immediately.
	g.BroadcastBotList(g.registry.Snapshot())

	g.readLoop(r.Context(), conn)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer g.dropConn(conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("Frontend connection closed: %v", err)
			return
		}
		g.dispatchFrom(conn, data)
	}
}

// dispatchFrom drops anything read off a connection that is no longer the
// authoritative channel. Commands raced against a supersession must not
// reach the session.
func (g *Gateway) dispatchFrom(conn *websocket.Conn, data []byte) {
	g.lock.Lock()
	isCurrent := g.conn == conn
	g.lock.Unlock()

	if !isCurrent {
		log.Warn("Ignoring message from superseded frontend connection")
		return
	}
	g.handleMessage(data)
}

// dropConn releases a closing connection. The session is cancelled only if
// the connection was still the authoritative one; a superseded channel
// closing is a non-event.
func (g *Gateway) dropConn(conn *websocket.Conn) {
	g.lock.Lock()
	isCurrent := g.conn == conn
	if isCurrent {
		g.conn = nil
	}
	g.lock.Unlock()

	conn.Close(websocket.StatusNormalClosure, "")

	if isCurrent {
		g.controller.FrontendDisconnected()
	}
}

// handleMessage dispatches one inbound command by its declared type.
// Malformed and unrecognized messages are logged and otherwise ignored.
func (g *Gateway) handleMessage(data []byte) {
	messageType, err := messages.PeekType(data)
	if err != nil {
		log.Warn("Malformed frontend message: %v", err)
		return
	}

	switch messageType {
	case messages.MessageTypeStartGame:
		command := &messages.StartGame{}
		if err := json.Unmarshal(data, command); err != nil {
			log.Warn("Malformed START_GAME command: %v", err)
			return
		}
		if len(command.BotIDs) != 2 {
			g.GameStartError("Exactly two bot ids are required.")
			return
		}
		g.controller.StartGame(command.BotIDs[0], command.BotIDs[1])
	case messages.MessageTypeReconnectGame:
		command := &messages.StartGame{}
		if err := json.Unmarshal(data, command); err != nil {
			log.Warn("Malformed RECONNECT_GAME command: %v", err)
			return
		}
		if len(command.BotIDs) != 2 {
			g.GameStartError("Exactly two bot ids are required.")
			return
		}
		g.controller.Reconnect(command.BotIDs[0], command.BotIDs[1])
	case messages.MessageTypeRequestNewGame:
		g.controller.RequestNewGame()
	case messages.MessageTypeCancelGame:
		command := &messages.CancelGame{}
		if err := json.Unmarshal(data, command); err != nil {
			log.Warn("Malformed CANCEL_GAME command: %v", err)
			return
		}
		reason := command.Reason
		if reason == "" {
			reason = "Game canceled."
		}
		g.controller.Stop(reason)
	case messages.MessageTypeGameState:
		update := &messages.GameStateUpdate{}
		if err := json.Unmarshal(data, update); err != nil {
			log.Warn("Malformed GAME_STATE update: %v", err)
			return
		}
		g.controller.HandleGameState(update.GameState)
	case messages.MessageTypeGameOver:
		update := &messages.GameOver{}
		if err := json.Unmarshal(data, update); err != nil {
			log.Warn("Malformed GAME_OVER message: %v", err)
			return
		}
		g.controller.HandleGameOver(update.Winner, update.Reason)
	default:
		log.Debug("Ignoring frontend message of type %s", messageType)
	}
}

// BroadcastBotList pushes a registry snapshot to the frontend.
func (g *Gateway) BroadcastBotList(bots []registry.BotRecord) {
	summaries := make([]messages.BotSummary, 0, len(bots))
	for _, bot := range bots {
		summaries = append(summaries, messages.BotSummary{
			ID:   bot.ID,
			Name: bot.Name,
		})
	}
	g.send(&messages.BotList{
		Type: messages.MessageTypeBotList,
		Bots: summaries,
	})
}

// GameStarted implements session.Notifier.
func (g *Gateway) GameStarted(names []string, ids []string) {
	g.send(&messages.GameStarted{
		Type:   messages.MessageTypeGameStarted,
		Bots:   names,
		BotIDs: ids,
	})
}

// GameStartError implements session.Notifier.
func (g *Gateway) GameStartError(message string) {
	g.send(&messages.GameStartError{
		Type:    messages.MessageTypeGameStartError,
		Message: message,
	})
}

// GameEnded implements session.Notifier.
func (g *Gateway) GameEnded(reason string) {
	g.send(&messages.GameEnded{
		Type:   messages.MessageTypeGameEnded,
		Reason: reason,
	})
}

// BotMove implements session.Notifier.
func (g *Gateway) BotMove(botID string, direction gametypes.Direction) {
	g.send(&messages.BotMove{
		Type:      messages.MessageTypeBotMove,
		BotID:     botID,
		Direction: direction,
	})
}

// send writes one event to the current channel. A closed channel silently
// drops the send.
func (g *Gateway) send(v interface{}) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.conn == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to marshal frontend event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := g.conn.Write(ctx, websocket.MessageText, data); err != nil {
		log.Debug("Dropped frontend event: %v", err)
	}
}
