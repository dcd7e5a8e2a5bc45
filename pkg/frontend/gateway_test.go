package frontend

import (
	"testing"
	"time"

	gametypes "github.com/aym-n/SneakByte/pkg/game/types"
	"github.com/aym-n/SneakByte/pkg/registry"
	"github.com/stretchr/testify/assert"
	"nhooyr.io/websocket"
)

type call struct {
	name string
	args []interface{}
}

type fakeController struct {
	calls []call
}

func (c *fakeController) StartGame(botID1, botID2 string) {
	c.calls = append(c.calls, call{name: "StartGame", args: []interface{}{botID1, botID2}})
}

func (c *fakeController) Reconnect(botID1, botID2 string) {
	c.calls = append(c.calls, call{name: "Reconnect", args: []interface{}{botID1, botID2}})
}

func (c *fakeController) RequestNewGame() {
	c.calls = append(c.calls, call{name: "RequestNewGame"})
}

func (c *fakeController) Stop(reason string) {
	c.calls = append(c.calls, call{name: "Stop", args: []interface{}{reason}})
}

func (c *fakeController) HandleGameState(state gametypes.GameState) {
	c.calls = append(c.calls, call{name: "HandleGameState", args: []interface{}{state}})
}

func (c *fakeController) HandleGameOver(winner, reason string) {
	c.calls = append(c.calls, call{name: "HandleGameOver", args: []interface{}{winner, reason}})
}

func (c *fakeController) FrontendDisconnected() {
	c.calls = append(c.calls, call{name: "FrontendDisconnected"})
}

func newTestGateway() (*Gateway, *fakeController) {
	controller := &fakeController{}
	gateway := NewGateway(NewGatewayOptions{
		Registry:   registry.NewBotRegistry(15 * time.Second),
		Controller: controller,
	})
	return gateway, controller
}

func TestGateway_handleMessage(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantCalls []call
	}{
		{
			name: "start game",
			data: []byte(`{"type":"START_GAME","botIds":["a","b"]}`),
			wantCalls: []call{
				{name: "StartGame", args: []interface{}{"a", "b"}},
			},
		},
		{
			name:      "start game with one bot id",
			data:      []byte(`{"type":"START_GAME","botIds":["a"]}`),
			wantCalls: nil,
		},
		{
			name: "reconnect game",
			data: []byte(`{"type":"RECONNECT_GAME","botIds":["a","b"]}`),
			wantCalls: []call{
				{name: "Reconnect", args: []interface{}{"a", "b"}},
			},
		},
		{
			name: "request new game",
			data: []byte(`{"type":"REQUEST_NEW_GAME"}`),
			wantCalls: []call{
				{name: "RequestNewGame"},
			},
		},
		{
			name: "cancel game with reason",
			data: []byte(`{"type":"CANCEL_GAME","reason":"operator stopped"}`),
			wantCalls: []call{
				{name: "Stop", args: []interface{}{"operator stopped"}},
			},
		},
		{
			name: "cancel game without reason",
			data: []byte(`{"type":"CANCEL_GAME"}`),
			wantCalls: []call{
				{name: "Stop", args: []interface{}{"Game canceled."}},
			},
		},
		{
			name: "game state update",
			data: []byte(`{"type":"GAME_STATE","snake1":[{"x":1,"y":2}],"snake2":[],"food":{"x":3,"y":4},"score1":1,"score2":0,"timer":55}`),
			wantCalls: []call{
				{name: "HandleGameState", args: []interface{}{gametypes.GameState{
					Snake1: gametypes.Snake{{X: 1, Y: 2}},
					Snake2: gametypes.Snake{},
					Food:   gametypes.Coord{X: 3, Y: 4},
					Score1: 1,
					Timer:  55,
				}}},
			},
		},
		{
			name: "game over",
			data: []byte(`{"type":"GAME_OVER","winner":"Player 1","reason":"Time up."}`),
			wantCalls: []call{
				{name: "HandleGameOver", args: []interface{}{"Player 1", "Time up."}},
			},
		},
		{
			name:      "unknown type is ignored",
			data:      []byte(`{"type":"PING"}`),
			wantCalls: nil,
		},
		{
			name:      "missing type is ignored",
			data:      []byte(`{"botIds":["a","b"]}`),
			wantCalls: nil,
		},
		{
			name:      "malformed json is ignored",
			data:      []byte(`{"type":`),
			wantCalls: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway, controller := newTestGateway()

			gateway.handleMessage(tt.data)

			assert.Equal(t, tt.wantCalls, controller.calls)
		})
	}
}

func TestGateway_dispatchFromSupersededConnection(t *testing.T) {
	gateway, controller := newTestGateway()
	staleConn := &websocket.Conn{}
	currentConn := &websocket.Conn{}

	gateway.lock.Lock()
	gateway.conn = currentConn
	gateway.lock.Unlock()

	// The replaced operator no longer controls the session.
	gateway.dispatchFrom(staleConn, []byte(`{"type":"CANCEL_GAME","reason":"stale operator"}`))
	assert.Empty(t, controller.calls)

	gateway.dispatchFrom(staleConn, []byte(`{"type":"START_GAME","botIds":["a","b"]}`))
	assert.Empty(t, controller.calls)

	// The authoritative channel still does.
	gateway.dispatchFrom(currentConn, []byte(`{"type":"CANCEL_GAME","reason":"stale operator"}`))
	assert.Equal(t, []call{{name: "Stop", args: []interface{}{"stale operator"}}}, controller.calls)
}
