package types

// Coord is a cell position on the game grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snake is an ordered list of segments, head first.
type Snake []Coord

// GameState is the rule engine's per-tick snapshot. The service stores and
// forwards it wholesale; it never advances the simulation itself.
type GameState struct {
	Snake1 Snake `json:"snake1"`
	Snake2 Snake `json:"snake2"`
	Food   Coord `json:"food"`
	Score1 int   `json:"score1"`
	Score2 int   `json:"score2"`
	Timer  int   `json:"timer"`
}

// Direction is a bot's move decision.
type Direction string

const (
	DirectionUp    Direction = "UP"
	DirectionDown  Direction = "DOWN"
	DirectionLeft  Direction = "LEFT"
	DirectionRight Direction = "RIGHT"
)

// IsValid reports whether d is one of the four cardinal directions.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// Vector returns the grid delta for one step in direction d.
func (d Direction) Vector() Coord {
	switch d {
	case DirectionUp:
		return Coord{X: 0, Y: -1}
	case DirectionDown:
		return Coord{X: 0, Y: 1}
	case DirectionLeft:
		return Coord{X: -1, Y: 0}
	case DirectionRight:
		return Coord{X: 1, Y: 0}
	}
	return Coord{}
}

// Opposite returns the reversing direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	case DirectionLeft:
		return DirectionRight
	case DirectionRight:
		return DirectionLeft
	}
	return d
}
