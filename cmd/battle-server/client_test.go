package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/park285/pokeleague/pkg/battledto"
)

func TestParseCommand(t *testing.T) {
	msg, quit, err := parseCommand("move 3 thunder punch")
	if err != nil || quit {
		t.Fatalf("parse move: %v %v", err, quit)
	}
	if msg.Type != battledto.ActionSelectMove || msg.BattleID != 3 || msg.Move != "thunder punch" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	msg, _, err = parseCommand("JOIN 3 12")
	if err != nil || msg.Type != battledto.ActionJoinBattle || msg.TeamID != 12 {
		t.Fatalf("parse join: %+v %v", msg, err)
	}

	msg, _, err = parseCommand("switch 3 41")
	if err != nil || msg.PokemonID != 41 {
		t.Fatalf("parse switch: %+v %v", msg, err)
	}

	if _, quit, _ := parseCommand("quit"); !quit {
		t.Fatalf("quit not recognized")
	}
	if msg, _, err := parseCommand("   "); msg != nil || err != nil {
		t.Fatalf("blank line should be ignored")
	}
	for _, bad := range []string{"join 3", "switch x 1", "move 0 tackle", "dance"} {
		if _, _, err := parseCommand(bad); err == nil {
			t.Fatalf("%q should fail", bad)
		}
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	st := battledto.BattleState{
		BattleID: 9, Status: "IN_PROGRESS", Turn: 1,
		Log: []string{"first", "Pikachu used Thunderbolt and dealt 30 damage to Eevee!"},
		Players: map[string]battledto.PlayerState{
			"1": {TeamID: 1, Name: "Pallet", MaxHP: 35, HasSelected: true,
				ActivePokemon: battledto.Pokemon{Name: "Pikachu", CurrentHP: 20, Moves: []battledto.Move{{Name: "thunderbolt"}}}},
		},
	}
	printEvent(&buf, &battledto.Event{Type: battledto.EventUpdateState, Payload: mustPayload(t, st)})
	out := buf.String()
	for _, want := range []string{"battle 9 [IN_PROGRESS]", "Pikachu 20/35 [thunderbolt] (ready)", "> Pikachu used Thunderbolt"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	ev := battledto.NewEvent(battledto.EventBattleError, battledto.BattleError{Code: "not_your_turn", Message: "It is not your turn."})
	printEvent(&buf, &ev)
	if got := buf.String(); got != "! It is not your turn. (not_your_turn)\n" {
		t.Fatalf("error line=%q", got)
	}
}

func mustPayload(t *testing.T, v any) []byte {
	t.Helper()
	ev := battledto.NewEvent("x", v)
	if len(ev.Payload) == 0 {
		t.Fatalf("payload did not marshal")
	}
	return ev.Payload
}
