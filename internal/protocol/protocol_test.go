package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder implements InboundHandler and remembers what it saw.
type recorder struct {
	got []string
	err error
}

func (r *recorder) note(s string) error {
	r.got = append(r.got, s)
	return r.err
}

func (r *recorder) HandleFold(Fold) error   { return r.note("fold") }
func (r *recorder) HandleCheck(Check) error { return r.note("check") }
func (r *recorder) HandleCall(Call) error   { return r.note("call") }
func (r *recorder) HandleBet(m Bet) error   { return r.note("bet:" + itoa(m.Amount)) }
func (r *recorder) HandleSelectRunCount(m SelectRunCount) error {
	return r.note("runs:" + itoa(m.Times))
}
func (r *recorder) HandleAgreeRunCount(m AgreeRunCount) error {
	if m.IsAgree {
		return r.note("agree")
	}
	return r.note("disagree")
}
func (r *recorder) HandleSocialAction(m SocialAction) error { return r.note("social:" + string(m.Payload)) }
func (r *recorder) HandleSetReady(m SetReady) error {
	if m.IsReady {
		return r.note("ready")
	}
	return r.note("not ready")
}
func (r *recorder) HandleSitAtTable(m SitAtTable) error { return r.note("sit:" + itoa(m.BuyIn)) }

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestDecodeInboundDispatch(t *testing.T) {
	t.Parallel()
	tests := []struct {
		frame string
		want  string
	}{
		{`{"type":"fold"}`, "fold"},
		{`{"type":"check","data":null}`, "check"},
		{`{"type":"call","data":{}}`, "call"},
		{`{"type":"bet","data":{"amount":120}}`, "bet:120"},
		{`{"type":"select_run_count","data":{"times":2}}`, "runs:2"},
		{`{"type":"agree_run_count","data":{"isAgree":true}}`, "agree"},
		{`{"type":"agree_run_count","data":{"isAgree":false}}`, "disagree"},
		{`{"type":"social_action","data":{"payload":{"emote":"gg"}}}`, `social:{"emote":"gg"}`},
		{`{"type":"set_ready","data":{"isReady":true}}`, "ready"},
		{`{"type":"sit_at_table","data":{"buyIn":500}}`, "sit:500"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			msg, err := DecodeInbound([]byte(tc.frame))
			require.NoError(t, err)

			r := &recorder{}
			require.NoError(t, msg.Accept(r))
			assert.Equal(t, []string{tc.want}, r.got)
		})
	}
}

func TestDecodeInboundErrors(t *testing.T) {
	t.Parallel()

	_, err := DecodeInbound([]byte(`{"type":"shove"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	_, err = DecodeInbound([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeInbound([]byte(`{"type":"bet","data":{"amount":"lots"}}`))
	assert.ErrorIs(t, err, ErrMalformed)

	// Outbound types are not accepted from clients.
	_, err = DecodeInbound([]byte(`{"type":"game_state_update","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestAcceptPropagatesHandlerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	r := &recorder{err: boom}
	assert.ErrorIs(t, Bet{Amount: 40}.Accept(r), boom)
}

func TestEncodeInboundRoundTrip(t *testing.T) {
	t.Parallel()
	frame, err := EncodeInbound(SelectRunCount{Times: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"select_run_count","data":{"times":3}}`, string(frame))

	msg, err := DecodeInbound(frame)
	require.NoError(t, err)
	assert.Equal(t, SelectRunCount{Times: 3}, msg)
}

func TestEncodeOutbound(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	frame, err := Encode(Error{Code: CodeInvalidAmount, Message: "too small", Min: 40, Max: 1000}, now)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "error",
		"data": {"code": "invalid_amount", "message": "too small", "min": 40, "max": 1000},
		"timestamp": "2026-01-02T03:04:05Z"
	}`, string(frame))

	msg, err := DecodeOutbound(frame)
	require.NoError(t, err)
	assert.Equal(t, &Error{Code: CodeInvalidAmount, Message: "too small", Min: 40, Max: 1000}, msg)
}

func TestGameStateUpdateHidesEmptyFields(t *testing.T) {
	t.Parallel()
	update := GameStateUpdate{
		RoomID:  "main",
		Stage:   "flop",
		Board:   []string{"Ah", "Kd", "2c"},
		Pot:     60,
		Players: []PlayerView{{ID: "a", Name: "Alice", Stack: 980, Status: "in_hand"}},
	}
	frame, err := Encode(update, time.Time{})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, TypeGameStateUpdate, env.Type)
	assert.True(t, env.Timestamp.IsZero())
	assert.NotContains(t, string(env.Data), "holeCards")
	assert.NotContains(t, string(env.Data), "turnExpiresAt")
	assert.NotContains(t, string(frame), "timestamp")

	decoded, err := DecodeOutbound(frame)
	require.NoError(t, err)
	assert.Equal(t, &update, decoded)
}
