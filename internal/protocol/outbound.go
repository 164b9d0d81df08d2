package protocol

import (
	"encoding/json"
	"time"
)

// PlayerView is one seat as a particular recipient sees it. HoleCards are
// only filled for the recipient's own seat and for hands shown down.
type PlayerView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Seat        int      `json:"seat"`
	Stack       int      `json:"stack"`
	StreetBet   int      `json:"streetBet"`
	TotalBet    int      `json:"totalBet"`
	HoleCards   []string `json:"holeCards,omitempty"`
	Folded      bool     `json:"folded"`
	AllIn       bool     `json:"allIn"`
	Acted       bool     `json:"acted"`
	Connected   bool     `json:"connected"`
	Status      string   `json:"status"`
	MissedTurns int      `json:"missedTurns,omitempty"`
}

// ValidAction tells the active player what they may do.
type ValidAction struct {
	Action string `json:"action"`
	Min    int    `json:"min,omitempty"`
	Max    int    `json:"max,omitempty"`
}

// Outs is the wire form of an outs classification.
type Outs struct {
	Kind   string      `json:"kind"` // direct_outs, runner_runner, drawing_dead
	Player string      `json:"player"`
	Outs   []string    `json:"outs,omitempty"`
	Chops  []string    `json:"chops,omitempty"`
	Pairs  [][2]string `json:"pairs,omitempty"`
}

// PlayerEquity is one contestant's share of an all-in.
type PlayerEquity struct {
	PlayerID string  `json:"playerId"`
	Equity   float64 `json:"equity"`
}

// RunOutView is the negotiation as shown in game state.
type RunOutView struct {
	State      string          `json:"state"`
	Underdog   string          `json:"underdog"`
	Favorites  []string        `json:"favorites"`
	Options    []int           `json:"options"`
	Times      int             `json:"times"`
	Agreements map[string]bool `json:"agreements,omitempty"`
}

// GameStateUpdate is the full table state, personalized per recipient.
type GameStateUpdate struct {
	RoomID        string        `json:"roomId"`
	HandID        string        `json:"handId,omitempty"`
	Stage         string        `json:"stage"`
	Board         []string      `json:"board"`
	Pot           int           `json:"pot"`
	Players       []PlayerView  `json:"players"`
	Dealer        int           `json:"dealer"`
	Active        string        `json:"active,omitempty"`
	LastRaise     int           `json:"lastRaise"`
	SmallBlind    int           `json:"smallBlind"`
	BigBlind      int           `json:"bigBlind"`
	AmountToCall  int           `json:"amountToCall"`
	LastAggressor string        `json:"lastAggressor,omitempty"`
	RunIndex      int           `json:"runIndex,omitempty"`
	TurnExpiresAt *time.Time    `json:"turnExpiresAt,omitempty"`
	ValidActions  []ValidAction `json:"validActions,omitempty"`
	RunOut        *RunOutView   `json:"runOut,omitempty"`
}

type PlayerJoined struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

// Error codes
const (
	CodeOutOfTurn         = "out_of_turn"
	CodeInvalidAmount     = "invalid_amount"
	CodeProtocolViolation = "protocol_violation"
	CodeMalformed         = "malformed"
	CodeInvalidSeat       = "invalid_seat"
	CodeServerError       = "server_error"
)

// Error reports a rejected message to its sender. Min and Max are set for
// invalid amounts.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Min     int    `json:"min,omitempty"`
	Max     int    `json:"max,omitempty"`
}

// AllInEquityUpdate reports equities when a run-out starts and once per board
// dealt in a multi-run.
type AllInEquityUpdate struct {
	HandID   string         `json:"handId"`
	RunIndex int            `json:"runIndex,omitempty"`
	Equities []PlayerEquity `json:"equities"`
	Outs     *Outs          `json:"outs,omitempty"`
}

// OfferRunItMultipleTimes is broadcast when the underdog is offered a choice,
// and again with State awaiting_agreement once they have chosen.
type OfferRunItMultipleTimes struct {
	HandID    string         `json:"handId"`
	State     string         `json:"state"`
	Underdog  string         `json:"underdog"`
	Favorites []string       `json:"favorites"`
	Options   []int          `json:"options"`
	Times     int            `json:"times,omitempty"`
	Equities  []PlayerEquity `json:"equities"`
	Outs      *Outs          `json:"outs,omitempty"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

// PotShare is one pot settled on one board.
type PotShare struct {
	Amount  int            `json:"amount"`
	Winners []string       `json:"winners"`
	Hand    string         `json:"hand,omitempty"`
	Payouts map[string]int `json:"payouts"`
}

type BoardResult struct {
	Index int        `json:"index"`
	Board []string   `json:"board"`
	Pots  []PotShare `json:"pots"`
}

// RunItMultipleTimesResult reports every board and the hand's payouts. It is
// sent for every settled hand; uncontested hands have no boards.
type RunItMultipleTimesResult struct {
	HandID      string              `json:"handId"`
	Times       int                 `json:"times"`
	Boards      []BoardResult       `json:"boards"`
	Payouts     map[string]int      `json:"payouts"`
	Revealed    map[string][]string `json:"revealed,omitempty"`
	Uncontested bool                `json:"uncontested,omitempty"`
}

type BlindsUp struct {
	Level       int        `json:"level"`
	SmallBlind  int        `json:"smallBlind"`
	BigBlind    int        `json:"bigBlind"`
	NextLevelAt *time.Time `json:"nextLevelAt,omitempty"`
}

type TournamentWinner struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Stack    int    `json:"stack"`
}

type SocialActionBroadcast struct {
	PlayerID string          `json:"playerId"`
	Payload  json.RawMessage `json:"payload"`
}

type LobbyUpdate struct {
	RoomID         string `json:"roomId"`
	Members        int    `json:"members"`
	Seated         int    `json:"seated"`
	Ready          int    `json:"ready"`
	MaxSeats       int    `json:"maxSeats"`
	HandInProgress bool   `json:"handInProgress"`
	SmallBlind     int    `json:"smallBlind"`
	BigBlind       int    `json:"bigBlind"`
}

type PlayerReadyUpdate struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

type PlayerStatusUpdate struct {
	PlayerID    string `json:"playerId"`
	Status      string `json:"status"`
	Stack       int    `json:"stack"`
	MissedTurns int    `json:"missedTurns"`
}

type ConnectionStatusUpdate struct {
	PlayerID  string `json:"playerId"`
	Connected bool   `json:"connected"`
}

func (GameStateUpdate) Type() MessageType          { return TypeGameStateUpdate }
func (PlayerJoined) Type() MessageType             { return TypePlayerJoined }
func (PlayerLeft) Type() MessageType               { return TypePlayerLeft }
func (Error) Type() MessageType                    { return TypeError }
func (AllInEquityUpdate) Type() MessageType        { return TypeAllInEquityUpdate }
func (RunItMultipleTimesResult) Type() MessageType { return TypeRunItMultipleTimesResult }
func (OfferRunItMultipleTimes) Type() MessageType  { return TypeOfferRunItMultipleTimes }
func (BlindsUp) Type() MessageType                 { return TypeBlindsUp }
func (TournamentWinner) Type() MessageType         { return TypeTournamentWinner }
func (SocialActionBroadcast) Type() MessageType    { return TypeSocialActionBroadcast }
func (LobbyUpdate) Type() MessageType              { return TypeLobbyUpdate }
func (PlayerReadyUpdate) Type() MessageType        { return TypePlayerReadyUpdate }
func (PlayerStatusUpdate) Type() MessageType       { return TypePlayerStatusUpdate }
func (ConnectionStatusUpdate) Type() MessageType   { return TypeConnectionStatusUpdate }

var outboundTypes = map[MessageType]func() Outbound{
	TypeGameStateUpdate:          func() Outbound { return &GameStateUpdate{} },
	TypePlayerJoined:             func() Outbound { return &PlayerJoined{} },
	TypePlayerLeft:               func() Outbound { return &PlayerLeft{} },
	TypeError:                    func() Outbound { return &Error{} },
	TypeAllInEquityUpdate:        func() Outbound { return &AllInEquityUpdate{} },
	TypeRunItMultipleTimesResult: func() Outbound { return &RunItMultipleTimesResult{} },
	TypeOfferRunItMultipleTimes:  func() Outbound { return &OfferRunItMultipleTimes{} },
	TypeBlindsUp:                 func() Outbound { return &BlindsUp{} },
	TypeTournamentWinner:         func() Outbound { return &TournamentWinner{} },
	TypeSocialActionBroadcast:    func() Outbound { return &SocialActionBroadcast{} },
	TypeLobbyUpdate:              func() Outbound { return &LobbyUpdate{} },
	TypePlayerReadyUpdate:        func() Outbound { return &PlayerReadyUpdate{} },
	TypePlayerStatusUpdate:       func() Outbound { return &PlayerStatusUpdate{} },
	TypeConnectionStatusUpdate:   func() Outbound { return &ConnectionStatusUpdate{} },
}
