package battledto

import "encoding/json"

// Server → client event names.
const (
	EventUpdateState    = "updateState"
	EventBattleAccepted = "battleAccepted"
	EventBattleRejected = "battleRejected"
	EventBattleEnded    = "battleEnded"
	EventBattleError    = "battleError"
	EventChallenge      = "challenge"
	EventRegistered     = "registered"
)

type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type BattleAccepted struct {
	BattleID int64 `json:"battleId"`
	MyTeamID int64 `json:"myTeamId"`
}

type BattleRejected struct {
	BattleID int64 `json:"battleId"`
}

type BattleEnded struct {
	BattleID int64  `json:"battleId"`
	WinnerID int64  `json:"winnerId"`
	LoserID  int64  `json:"loserId"`
	Message  string `json:"message"`
}

type BattleError struct {
	BattleID int64  `json:"battleId,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

type Challenge struct {
	From     string `json:"from"`
	BattleID int64  `json:"battleId"`
}

type Registered struct {
	UserID    int64  `json:"userId"`
	SessionID string `json:"sessionId"`
}

// NewEvent marshals payload into an event envelope.
func NewEvent(typ string, payload any) Event {
	ev := Event{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			ev.Payload = raw
		}
	}
	return ev
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
