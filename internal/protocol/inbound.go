package protocol

import (
	"encoding/json"
	"fmt"
)

// InboundHandler handles every client message type. Adding a message means
// adding a method here, so every handler fails to compile until it copes.
type InboundHandler interface {
	HandleFold(Fold) error
	HandleCheck(Check) error
	HandleCall(Call) error
	HandleBet(Bet) error
	HandleSelectRunCount(SelectRunCount) error
	HandleAgreeRunCount(AgreeRunCount) error
	HandleSocialAction(SocialAction) error
	HandleSetReady(SetReady) error
	HandleSitAtTable(SitAtTable) error
}

// Inbound is any client to server message
type Inbound interface {
	Type() MessageType
	Accept(InboundHandler) error
}

type Fold struct{}

type Check struct{}

type Call struct{}

// Bet bets or raises to Amount, the player's total for the street.
type Bet struct {
	Amount int `json:"amount"`
}

// SelectRunCount is the underdog's choice of how many boards to deal.
type SelectRunCount struct {
	Times int `json:"times"`
}

// AgreeRunCount is a favorite's answer to the underdog's choice.
type AgreeRunCount struct {
	IsAgree bool `json:"isAgree"`
}

// SocialAction carries an opaque client payload (emotes, chat) relayed to
// the room.
type SocialAction struct {
	Payload json.RawMessage `json:"payload"`
}

type SetReady struct {
	IsReady bool `json:"isReady"`
}

type SitAtTable struct {
	BuyIn int `json:"buyIn"`
}

func (Fold) Type() MessageType           { return TypeFold }
func (Check) Type() MessageType          { return TypeCheck }
func (Call) Type() MessageType           { return TypeCall }
func (Bet) Type() MessageType            { return TypeBet }
func (SelectRunCount) Type() MessageType { return TypeSelectRunCount }
func (AgreeRunCount) Type() MessageType  { return TypeAgreeRunCount }
func (SocialAction) Type() MessageType   { return TypeSocialAction }
func (SetReady) Type() MessageType       { return TypeSetReady }
func (SitAtTable) Type() MessageType     { return TypeSitAtTable }

func (m Fold) Accept(h InboundHandler) error           { return h.HandleFold(m) }
func (m Check) Accept(h InboundHandler) error          { return h.HandleCheck(m) }
func (m Call) Accept(h InboundHandler) error           { return h.HandleCall(m) }
func (m Bet) Accept(h InboundHandler) error            { return h.HandleBet(m) }
func (m SelectRunCount) Accept(h InboundHandler) error { return h.HandleSelectRunCount(m) }
func (m AgreeRunCount) Accept(h InboundHandler) error  { return h.HandleAgreeRunCount(m) }
func (m SocialAction) Accept(h InboundHandler) error   { return h.HandleSocialAction(m) }
func (m SetReady) Accept(h InboundHandler) error       { return h.HandleSetReady(m) }
func (m SitAtTable) Accept(h InboundHandler) error     { return h.HandleSitAtTable(m) }

func decodeInto[T Inbound](data json.RawMessage) (Inbound, error) {
	var msg T
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

var inboundTypes = map[MessageType]func(json.RawMessage) (Inbound, error){
	TypeFold:           decodeInto[Fold],
	TypeCheck:          decodeInto[Check],
	TypeCall:           decodeInto[Call],
	TypeBet:            decodeInto[Bet],
	TypeSelectRunCount: decodeInto[SelectRunCount],
	TypeAgreeRunCount:  decodeInto[AgreeRunCount],
	TypeSocialAction:   decodeInto[SocialAction],
	TypeSetReady:       decodeInto[SetReady],
	TypeSitAtTable:     decodeInto[SitAtTable],
}

// DecodeInbound parses a client frame.
func DecodeInbound(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	decode, ok := inboundTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
	msg, err := decode(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return msg, nil
}

// EncodeInbound frames a client message. Used by clients and tests.
func EncodeInbound(msg Inbound) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msg.Type(), Data: data})
}
