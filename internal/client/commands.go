package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/pokerroom/internal/protocol"
)

var ErrUnknownCommand = errors.New("unknown command")

// Help lists the commands ParseCommand understands.
const Help = "fold | check | call | bet <to> | allin | sit <buy-in> | ready | away | run <n> | agree | decline | emote <text>"

// ParseCommand turns a typed line into a room message. valid is the last
// set of valid actions the player was offered; allin bets to its maximum.
func ParseCommand(input string, valid []protocol.ValidAction) (protocol.Inbound, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnknownCommand)
	}
	action, args := parts[0], parts[1:]

	switch action {
	case "fold", "f":
		return protocol.Fold{}, nil
	case "check", "k":
		return protocol.Check{}, nil
	case "call", "c":
		return protocol.Call{}, nil
	case "bet", "raise", "b", "r":
		amount, err := amountArg(action, args)
		if err != nil {
			return nil, err
		}
		return protocol.Bet{Amount: amount}, nil
	case "allin", "all-in":
		for _, va := range valid {
			if va.Action == "bet" {
				return protocol.Bet{Amount: va.Max}, nil
			}
		}
		for _, va := range valid {
			if va.Action == "call" {
				return protocol.Call{}, nil
			}
		}
		return nil, fmt.Errorf("allin: no bet or call available")
	case "sit":
		amount, err := amountArg(action, args)
		if err != nil {
			return nil, err
		}
		return protocol.SitAtTable{BuyIn: amount}, nil
	case "ready":
		return protocol.SetReady{IsReady: true}, nil
	case "away", "unready":
		return protocol.SetReady{IsReady: false}, nil
	case "run":
		times, err := amountArg(action, args)
		if err != nil {
			return nil, err
		}
		return protocol.SelectRunCount{Times: times}, nil
	case "agree", "yes":
		return protocol.AgreeRunCount{IsAgree: true}, nil
	case "decline", "no":
		return protocol.AgreeRunCount{IsAgree: false}, nil
	case "emote", "say":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: text required", action)
		}
		payload, err := json.Marshal(map[string]string{"emote": strings.Join(args, " ")})
		if err != nil {
			return nil, err
		}
		return protocol.SocialAction{Payload: payload}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, action)
}

func amountArg(action string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: expected one amount", action)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid amount %q", action, args[0])
	}
	return n, nil
}
