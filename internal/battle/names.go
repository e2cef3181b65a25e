package battle

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/park285/pokeleague/internal/domain"
)

// displayName prefers the nickname, otherwise title-cases the species name
// ("mr-mime" -> "Mr-Mime"). A Caser is not safe for concurrent use.
func displayName(p *domain.Pokemon) string {
	if n := strings.TrimSpace(p.Nickname); n != "" {
		return n
	}
	return cases.Title(language.English).String(strings.TrimSpace(p.Name))
}

func (s *Side) display() string { return teamName(s.Name, s.TeamID) }

func teamName(name string, id int64) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "Team " + strconv.FormatInt(id, 10)
}
