package nba

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nbarotations/utils"
)

const DefaultBaseURL = "http://stats.nba.com"

// GameDateLayout is the month-day-year text shown on a game page once the
// whitespace has been collapsed ("Oct 17, 2017").
const GameDateLayout = "Jan 2, 2006"

// StatColumns is the width of a boxscore table row.
const StatColumns = 21

// StartersPerTeam is the number of leading rows in a team table that are
// starters.
const StartersPerTeam = 5

type GameResult struct {
	GameID    string `db:"GameID" json:"gameId"`
	GameDate  string `db:"GameDate" json:"gameDate"`
	HomeTeam  string `db:"HomeTeam" json:"homeTeam"`
	HomeScore int    `db:"HomeScore" json:"homeScore"`
	AwayTeam  string `db:"AwayTeam" json:"awayTeam"`
	AwayScore int    `db:"AwayScore" json:"awayScore"`
}

func (g GameResult) Date() (time.Time, error) {
	return time.Parse(utils.StoredDateLayout, g.GameDate)
}

func (g GameResult) Involves(team string) bool {
	return g.HomeTeam == team || g.AwayTeam == team
}

// Scores returns the score of team and of its opponent.
func (g GameResult) Scores(team string) (own, opponent int) {
	if g.HomeTeam == team {
		return g.HomeScore, g.AwayScore
	}
	return g.AwayScore, g.HomeScore
}

func (g GameResult) ToString() string {
	return fmt.Sprintf("%s (%d) vs %s (%d) %s",
		g.HomeTeam,
		g.HomeScore,
		g.AwayTeam,
		g.AwayScore,
		g.GameDate,
	)
}

// StatLine is one row of a team's boxscore table exactly as it was shown on
// the page, plus the team, starter flag and game it belongs to.
type StatLine struct {
	PlayerName string `db:"Player Name" json:"playerName"`
	Min        string `db:"Min" json:"min"`
	FGM        string `db:"FGM" json:"fgm"`
	FGA        string `db:"FGA" json:"fga"`
	FGPct      string `db:"FG%" json:"fgPct"`
	ThreePM    string `db:"3PM" json:"threePm"`
	ThreePA    string `db:"3PA" json:"threePa"`
	ThreePct   string `db:"3P%" json:"threePct"`
	FTM        string `db:"FTM" json:"ftm"`
	FTA        string `db:"FTA" json:"fta"`
	FTPct      string `db:"FT%" json:"ftPct"`
	OREB       string `db:"OREB" json:"oreb"`
	DREB       string `db:"DREB" json:"dreb"`
	REB        string `db:"REB" json:"reb"`
	AST        string `db:"AST" json:"ast"`
	TOV        string `db:"TOV" json:"tov"`
	STL        string `db:"STL" json:"stl"`
	BLK        string `db:"BLK" json:"blk"`
	PF         string `db:"PF" json:"pf"`
	PTS        string `db:"PTS" json:"pts"`
	PlusMinus  string `db:"+/-" json:"plusMinus"`
	Team       string `db:"Team" json:"team"`
	Starter    bool   `db:"Starter" json:"starter"`
	GameID     string `db:"GameID" json:"gameId"`
}

// NewStatLine maps the cells of a table row onto the fixed column schema.
// Missing trailing cells are left empty and extra cells are ignored.
func NewStatLine(cells []string) StatLine {
	c := make([]string, StatColumns)
	copy(c, cells)
	return StatLine{
		PlayerName: c[0],
		Min:        c[1],
		FGM:        c[2],
		FGA:        c[3],
		FGPct:      c[4],
		ThreePM:    c[5],
		ThreePA:    c[6],
		ThreePct:   c[7],
		FTM:        c[8],
		FTA:        c[9],
		FTPct:      c[10],
		OREB:       c[11],
		DREB:       c[12],
		REB:        c[13],
		AST:        c[14],
		TOV:        c[15],
		STL:        c[16],
		BLK:        c[17],
		PF:         c[18],
		PTS:        c[19],
		PlusMinus:  c[20],
	}
}

type DNPReason string

const (
	DNPNone   DNPReason = ""
	DNPInjury DNPReason = "Injury/Illness"
	DNPOther  DNPReason = "Other"
)

// PlayerBoxscoreRow is the typed view of a StatLine.
type PlayerBoxscoreRow struct {
	GameID         string
	Team           string
	PlayerName     string
	Minutes        float64
	FieldGoalsMade int
	Starter        bool
	DNP            DNPReason
}

// Row derives the typed record. Players that did not play get zero minutes
// and zero field goals.
func (s StatLine) Row() (PlayerBoxscoreRow, error) {
	row := PlayerBoxscoreRow{
		GameID:     s.GameID,
		Team:       s.Team,
		PlayerName: s.PlayerName,
		Starter:    s.Starter,
	}
	fgm, played, reason := ClassifyDNP(s.FGM)
	if !played {
		row.DNP = reason
		return row, nil
	}
	mins, err := ParseMinutes(s.Min)
	if err != nil {
		return row, fmt.Errorf("%s in game %s: %w", s.PlayerName, s.GameID, err)
	}
	row.Minutes = mins
	row.FieldGoalsMade = fgm
	return row, nil
}

// ClassifyDNP reads the field-goals-made cell. A number means the player
// played. Anything else is a did-not-play note such as
// "DNP - Injury/Illness" whose third token carries the reason.
func ClassifyDNP(fgm string) (made int, played bool, reason DNPReason) {
	if n, err := strconv.Atoi(strings.TrimSpace(fgm)); err == nil {
		return n, true, DNPNone
	}
	if strings.TrimSpace(fgm) == "" {
		return 0, false, DNPNone
	}
	tokens := strings.Fields(fgm)
	if len(tokens) < 3 {
		return 0, false, DNPOther
	}
	switch tokens[2] {
	case string(DNPInjury):
		return 0, false, DNPInjury
	case "Coach's":
		return 0, false, DNPNone
	}
	return 0, false, DNPOther
}

// ParseMinutes converts "mm:ss" into decimal minutes rounded to two places.
func ParseMinutes(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	minPart, secPart, hasSeconds := strings.Cut(s, ":")
	mins, err := strconv.ParseFloat(minPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes %q: %w", s, err)
	}
	var secs float64
	if hasSeconds {
		secs, err = strconv.ParseFloat(secPart, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid seconds %q: %w", s, err)
		}
	}
	if mins < 0 || secs < 0 {
		return 0, fmt.Errorf("negative minutes %q", s)
	}
	return math.Round((mins+secs/60)*100) / 100, nil
}

// ParseGameDate parses the date text of a game page. Runs of whitespace are
// collapsed first since the page pads the day with extra spaces.
func ParseGameDate(text string) (time.Time, error) {
	return time.Parse(GameDateLayout, strings.Join(strings.Fields(text), " "))
}

func ScoreboardURL(base string, date time.Time) string {
	return fmt.Sprintf("%s/scores/%s", strings.TrimRight(base, "/"), date.Format("01/02/2006"))
}

func GameURL(base, link string) string {
	return strings.TrimRight(base, "/") + link
}

// GameIDFromLink returns the path segment before the final slash of a
// boxscore link such as "/game/0021700001/".
func GameIDFromLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", utils.ErrorWithTrace(err)
	}
	segments := strings.Split(u.Path, "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("no game id in link %q", link)
	}
	id := segments[len(segments)-2]
	if len(id) != 10 {
		return "", fmt.Errorf("no game id in link %q", link)
	}
	return id, nil
}
