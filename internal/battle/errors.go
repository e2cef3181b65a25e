package battle

import (
	"errors"

	"github.com/park285/pokeleague/internal/domain"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

// ErrBattleNotFound is returned for ids with no durable record.
var ErrBattleNotFound error = domain.ErrBattleNotFound

var (
	ErrBattleNotActive  = staticErr("battle is not in progress")
	ErrBattleNotPending = staticErr("battle is not pending")
	ErrNotInBattle      = staticErr("session is not part of this battle")
	ErrNotYourTurn      = staticErr("not your turn")
	ErrMustSwitch       = staticErr("active pokemon has fainted")
	ErrUnknownMove      = staticErr("unknown move")
	ErrUnknownPokemon   = staticErr("pokemon is not on the team")
	ErrFaintedTarget    = staticErr("switch target has fainted")
	ErrAlreadyActive    = staticErr("pokemon is already active")
	ErrSameTrainer      = staticErr("a team cannot battle itself")
	ErrInvalidTrainer   = staticErr("invalid trainer id")
	ErrLeagueMismatch   = staticErr("teams belong to different leagues")
	ErrEmptyRoster      = staticErr("team has no pokemon")
)

// errorCodes maps rejections to catalog keys under "errors.".
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrBattleNotActive, "not_active"},
	{ErrBattleNotPending, "not_pending"},
	{ErrNotInBattle, "not_in_battle"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrMustSwitch, "must_switch"},
	{ErrUnknownMove, "unknown_move"},
	{ErrUnknownPokemon, "unknown_pokemon"},
	{ErrFaintedTarget, "fainted_target"},
	{ErrAlreadyActive, "already_active"},
}

// ErrorCode returns the short code clients receive for err.
func ErrorCode(err error) string {
	if errors.Is(err, ErrBattleNotFound) {
		return "not_found"
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
