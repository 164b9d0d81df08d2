// Package protocol defines the room wire format: a JSON envelope carrying a
// message type and its data. Inbound messages dispatch through
// InboundHandler, which has one method per message type.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeFold           MessageType = "fold"
	TypeCheck          MessageType = "check"
	TypeCall           MessageType = "call"
	TypeBet            MessageType = "bet"
	TypeSelectRunCount MessageType = "select_run_count"
	TypeAgreeRunCount  MessageType = "agree_run_count"
	TypeSocialAction   MessageType = "social_action"
	TypeSetReady       MessageType = "set_ready"
	TypeSitAtTable     MessageType = "sit_at_table"

	// Server -> Client
	TypeGameStateUpdate          MessageType = "game_state_update"
	TypePlayerJoined             MessageType = "player_joined"
	TypePlayerLeft               MessageType = "player_left"
	TypeError                    MessageType = "error"
	TypeAllInEquityUpdate        MessageType = "all_in_equity_update"
	TypeRunItMultipleTimesResult MessageType = "run_it_multiple_times_result"
	TypeOfferRunItMultipleTimes  MessageType = "offer_run_it_multiple_times"
	TypeBlindsUp                 MessageType = "blinds_up"
	TypeTournamentWinner         MessageType = "tournament_winner"
	TypeSocialActionBroadcast    MessageType = "social_action_broadcast"
	TypeLobbyUpdate              MessageType = "lobby_update"
	TypePlayerReadyUpdate        MessageType = "player_ready_update"
	TypePlayerStatusUpdate       MessageType = "player_status_update"
	TypeConnectionStatusUpdate   MessageType = "connection_status_update"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMalformed          = errors.New("malformed message")
)

// Envelope is the frame every message travels in
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// Outbound is any server to client message
type Outbound interface {
	Type() MessageType
}

// Encode wraps msg in an envelope stamped with now.
func Encode(msg Outbound, now time.Time) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{Type: msg.Type(), Data: data, Timestamp: now})
}

// DecodeOutbound parses an outbound frame. Clients and tests use it; the
// server only decodes inbound messages.
func DecodeOutbound(frame []byte) (Outbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	newMsg, ok := outboundTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
	msg := newMsg()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
		}
	}
	return msg, nil
}
