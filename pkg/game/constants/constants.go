package constants

import "time"

const (
	// GridSize is the width and height of the game grid in cells
	GridSize int = 30
	// GameSpeed is the simulation tick interval in milliseconds
	GameSpeed int = 150
	// GameDuration is the length of a match in seconds
	GameDuration int = 60
	// InitialSnakeLength is the starting length of each snake
	InitialSnakeLength int = 4

	// MoveRequestInterval is the cadence at which move requests are sent
	// to each connected bot.
	MoveRequestInterval = 200 * time.Millisecond

	// DiscoveryPort is the UDP port bots listen on for announce datagrams
	DiscoveryPort int = 9999
	// DiscoveryMessage is the fixed announce payload
	DiscoveryMessage string = "DISCOVERY_REQUEST"
	// BroadcastInterval is the cadence of announce datagrams and registry sweeps
	BroadcastInterval = 5 * time.Second
	// BotTimeout is how long a bot may stay silent before it is swept
	BotTimeout = 15 * time.Second

	// FrontendPort is the default port for the frontend control channel
	FrontendPort int = 1726
)
