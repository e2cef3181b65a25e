package domain

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	ErrBattleNotFound = staticErr("battle not found")
	ErrTeamNotFound   = staticErr("team not found")
)
