package messages

import (
	"encoding/json"
	"fmt"

	gametypes "github.com/aym-n/SneakByte/pkg/game/types"
)

const (
	// UDPMessageBufferSize is the maximum size of a discovery datagram
	UDPMessageBufferSize = 1024
)

// Bot channel message types
const (
	MessageTypeGameConfig   = "GAME_CONFIG"
	MessageTypeMoveRequest  = "MOVE_REQ"
	MessageTypeMoveResponse = "MOVE_RESP"
	MessageTypeGameEnded    = "GAME_ENDED"
)

// Frontend channel message types (backend -> frontend)
const (
	MessageTypeBotList        = "BOT_LIST"
	MessageTypeGameStarted    = "GAME_STARTED"
	MessageTypeGameStartError = "GAME_START_ERROR"
	MessageTypeBotMove        = "BOT_MOVE"
)

// Frontend channel message types (frontend -> backend)
const (
	MessageTypeStartGame      = "START_GAME"
	MessageTypeReconnectGame  = "RECONNECT_GAME"
	MessageTypeRequestNewGame = "REQUEST_NEW_GAME"
	MessageTypeCancelGame     = "CANCEL_GAME"
	MessageTypeGameState      = "GAME_STATE"
	MessageTypeGameOver       = "GAME_OVER"
)

// Envelope carries the declared type of a message. All protocol messages are
// flat JSON objects with a top-level "type" field.
type Envelope struct {
	Type string `json:"type"`
}

// PeekType returns the declared type of a raw message without decoding the
// rest of its fields.
func PeekType(data []byte) (string, error) {
	envelope := &Envelope{}
	if err := json.Unmarshal(data, envelope); err != nil {
		return "", fmt.Errorf("failed to unmarshal message envelope: %v", err)
	}
	if envelope.Type == "" {
		return "", fmt.Errorf("message has no type field")
	}
	return envelope.Type, nil
}

// GameConfig is sent to a bot once at connect so it can self-calibrate.
type GameConfig struct {
	Type      string `json:"type"`
	PlayerNum int    `json:"playerNum"`
	GridSize  int    `json:"gridSize"`
	GameSpeed int    `json:"gameSpeed"`
}

// MoveRequest is sent to a bot on a fixed cadence while a session is active.
// It is oriented so the bot always sees itself as "my snake" regardless of
// player slot.
type MoveRequest struct {
	Type          string          `json:"type"`
	MySnake       gametypes.Snake `json:"mySnake"`
	OpponentSnake gametypes.Snake `json:"opponentSnake"`
	Food          gametypes.Coord `json:"food"`
	MyScore       int             `json:"myScore"`
	OpponentScore int             `json:"opponentScore"`
	Timer         int             `json:"timer"`
}

// MoveResponse is a bot's answer to a MoveRequest.
type MoveResponse struct {
	Type      string              `json:"type"`
	Direction gametypes.Direction `json:"direction"`
}

// GameEnded is sent best-effort to bots at teardown and to the frontend when
// a session ends.
type GameEnded struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// BotSummary is a registry entry as shown to the frontend.
type BotSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BotList is the registry snapshot pushed to the frontend.
type BotList struct {
	Type string       `json:"type"`
	Bots []BotSummary `json:"bots"`
}

// GameStarted announces a successful session start. Bot IDs are included so
// a reloaded frontend can reconnect the same pairing.
type GameStarted struct {
	Type   string   `json:"type"`
	Bots   []string `json:"bots"`
	BotIDs []string `json:"botIds"`
}

// GameStartError reports a failed session start.
type GameStartError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// BotMove forwards a bot's move decision to the frontend.
type BotMove struct {
	Type      string              `json:"type"`
	BotID     string              `json:"botId"`
	Direction gametypes.Direction `json:"direction"`
}

// StartGame is the frontend command to begin a session with two bots. The
// same shape carries RECONNECT_GAME.
type StartGame struct {
	Type   string   `json:"type"`
	BotIDs []string `json:"botIds"`
}

// CancelGame is the frontend command to tear down the current session.
type CancelGame struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// GameStateUpdate carries a rule engine snapshot from the frontend.
type GameStateUpdate struct {
	Type string `json:"type"`
	gametypes.GameState
}

// GameOver is the rule engine's terminal signal with the declared result.
type GameOver struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// DiscoveryResponse is a bot's answer to the UDP announce datagram. Only ID
// is required; the sender's source address is taken from the datagram
// envelope, never from the payload.
type DiscoveryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	URL      string `json:"url,omitempty"`
}
