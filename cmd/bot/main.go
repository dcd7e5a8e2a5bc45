package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/aym-n/SneakByte/pkg/game/constants"
	gametypes "github.com/aym-n/SneakByte/pkg/game/types"
	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/messages"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

func main() {
	id := flag.String("id", "", "Bot id (default: random)")
	name := flag.String("name", "UnnamedBot", "Bot name")
	port := flag.Int("port", 8081, "Port for the bot channel")
	discoveryPort := flag.Int("discovery-port", constants.DiscoveryPort, "UDP port to listen on for discovery")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel))

	botID := *id
	if botID == "" {
		botID = uuid.NewString()[:8]
	}

	url := fmt.Sprintf("ws://%s:%d/", localIP(), *port)
	bot := &bot{
		id:   botID,
		name: *name,
		url:  url,
	}

	go bot.listenDiscovery(*discoveryPort)

	log.Info("Bot %s (%s) serving at %s", bot.name, bot.id, url)
	http.HandleFunc("/", bot.handleWS)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		panic(fmt.Sprintf("Bot server error: %v", err))
	}
}

type bot struct {
	id   string
	name string
	url  string
}

// listenDiscovery answers announce datagrams with the bot's identity and
// channel endpoint.
func (b *bot) listenDiscovery(port int) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		panic(fmt.Sprintf("Failed to listen for discovery: %v", err))
	}
	defer conn.Close()

	log.Info("Listening for discovery on UDP %d", port)

	response, _ := json.Marshal(&messages.DiscoveryResponse{
		ID:       b.id,
		Name:     b.name,
		Language: "go",
		URL:      b.url,
	})

	buf := make([]byte, messages.UDPMessageBufferSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			log.Error("Failed to read discovery datagram: %v", err)
			continue
		}
		if string(buf[:n]) != constants.DiscoveryMessage {
			continue
		}
		if _, err := conn.WriteToUDP(response, addr); err != nil {
			log.Error("Failed to answer discovery probe: %v", err)
		}
	}
}

func (b *bot) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("Failed to accept connection: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	log.Info("Game server connected from %s", r.RemoteAddr)

	player := &player{gridSize: constants.GridSize}
	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("Game server disconnected: %v", err)
			return
		}
		if reply := player.handleMessage(data); reply != nil {
			payload, err := json.Marshal(reply)
			if err != nil {
				log.Error("Failed to marshal move response: %v", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				log.Warn("Failed to send move response: %v", err)
				return
			}
		}
	}
}

// player is the per-session decision state.
type player struct {
	playerNum int
	gridSize  int
	lastDir   gametypes.Direction
}

func (p *player) handleMessage(data []byte) *messages.MoveResponse {
	messageType, err := messages.PeekType(data)
	if err != nil {
		log.Warn("Malformed message from server: %v", err)
		return nil
	}

	switch messageType {
	case messages.MessageTypeGameConfig:
		config := &messages.GameConfig{}
		if err := json.Unmarshal(data, config); err != nil {
			log.Warn("Malformed game config: %v", err)
			return nil
		}
		p.playerNum = config.PlayerNum
		if config.GridSize > 0 {
			p.gridSize = config.GridSize
		}
		p.lastDir = ""
		log.Info("Configured as player %d on a %d cell grid", config.PlayerNum, config.GridSize)
		return nil
	case messages.MessageTypeMoveRequest:
		request := &messages.MoveRequest{}
		if err := json.Unmarshal(data, request); err != nil {
			log.Warn("Malformed move request: %v", err)
			return nil
		}
		direction := p.decideMove(request)
		p.lastDir = direction
		return &messages.MoveResponse{
			Type:      messages.MessageTypeMoveResponse,
			Direction: direction,
		}
	case messages.MessageTypeGameEnded:
		ended := &messages.GameEnded{}
		if err := json.Unmarshal(data, ended); err == nil {
			log.Info("Game ended: %s", ended.Reason)
		}
		return nil
	default:
		log.Debug("Ignoring message of type %s", messageType)
		return nil
	}
}

// decideMove chases the food greedily on the wrap-around grid, preferring
// moves that do not reverse and do not step onto a snake body.
func (p *player) decideMove(request *messages.MoveRequest) gametypes.Direction {
	if len(request.MySnake) == 0 {
		return gametypes.DirectionDown
	}
	head := request.MySnake[0]

	occupied := make(map[gametypes.Coord]bool)
	for _, segment := range request.MySnake {
		occupied[segment] = true
	}
	for _, segment := range request.OpponentSnake {
		occupied[segment] = true
	}

	candidates := []gametypes.Direction{
		gametypes.DirectionUp,
		gametypes.DirectionDown,
		gametypes.DirectionLeft,
		gametypes.DirectionRight,
	}

	best := gametypes.Direction("")
	bestDistance := -1
	for _, direction := range candidates {
		if p.lastDir != "" && direction == p.lastDir.Opposite() {
			continue
		}
		next := p.step(head, direction)
		if occupied[next] {
			continue
		}
		distance := p.wrapDistance(next, request.Food)
		if bestDistance == -1 || distance < bestDistance {
			best = direction
			bestDistance = distance
		}
	}
	if best == "" {
		// Boxed in; keep heading and let the rule engine call it.
		if p.lastDir != "" {
			return p.lastDir
		}
		return gametypes.DirectionDown
	}
	return best
}

func (p *player) step(from gametypes.Coord, direction gametypes.Direction) gametypes.Coord {
	delta := direction.Vector()
	return gametypes.Coord{
		X: (from.X + delta.X + p.gridSize) % p.gridSize,
		Y: (from.Y + delta.Y + p.gridSize) % p.gridSize,
	}
}

// wrapDistance is the Manhattan distance on a torus.
func (p *player) wrapDistance(a, b gametypes.Coord) int {
	dx := abs(a.X - b.X)
	if wrapped := p.gridSize - dx; wrapped < dx {
		dx = wrapped
	}
	dy := abs(a.Y - b.Y)
	if wrapped := p.gridSize - dy; wrapped < dy {
		dy = wrapped
	}
	return dx + dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// localIP returns the first non-loopback IPv4 address, for building the
// advertised channel endpoint.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}
