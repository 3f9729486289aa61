// Package rotation turns stored results and boxscores into the per-team
// views the heatmap is drawn from: the season's win/loss trend and a
// player by game matrix of minutes played.
package rotation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"nbarotations/nba"
	"nbarotations/utils"
)

var ErrUnknownTeam = errors.New("unknown team")

// PaddingPlayer is the blank row added to odd-sized rosters.
const PaddingPlayer = " "

const (
	GlyphStarter = "="
	GlyphInjured = "/"
)

type Reader interface {
	ReadAllResults() ([]nba.GameResult, error)
	ReadAllBoxscores() ([]nba.StatLine, error)
}

// Dataset holds both tables for one run. Build it once with Load and pass
// it to whatever needs it.
type Dataset struct {
	Results   []nba.GameResult
	Boxscores []nba.StatLine
	excluded  map[string]bool
}

func Load(r Reader, excludedTeams []string) (*Dataset, error) {
	results, err := r.ReadAllResults()
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	boxscores, err := r.ReadAllBoxscores()
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return NewDataset(results, boxscores, excludedTeams), nil
}

func NewDataset(results []nba.GameResult, boxscores []nba.StatLine, excludedTeams []string) *Dataset {
	excluded := map[string]bool{}
	for _, t := range excludedTeams {
		excluded[t] = true
	}
	return &Dataset{Results: results, Boxscores: boxscores, excluded: excluded}
}

// Teams lists every team that appears in a result, sorted. Blank names and
// excluded exhibition teams are left out.
func (d *Dataset) Teams() []string {
	seen := map[string]bool{}
	for _, r := range d.Results {
		seen[r.HomeTeam] = true
		seen[r.AwayTeam] = true
	}
	teams := []string{}
	for t := range seen {
		if strings.TrimSpace(t) == "" || d.excluded[t] {
			continue
		}
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

func (d *Dataset) ValidTeam(team string) bool {
	for _, t := range d.Teams() {
		if t == team {
			return true
		}
	}
	return false
}

type TeamGame struct {
	nba.GameResult
	GameNumber int
	// Win is +1 for a win and -1 otherwise.
	Win int
	// PlusMinus is the running total of Win up to and including this game.
	PlusMinus int
}

type Season struct {
	Team  string
	Games []TeamGame
}

func (s Season) Record() (wins, losses int) {
	for _, g := range s.Games {
		if g.Win > 0 {
			wins++
		} else {
			losses++
		}
	}
	return wins, losses
}

func (s Season) RecordString() string {
	w, l := s.Record()
	return fmt.Sprintf("%d-%d", w, l)
}

// GameNumbers maps GameID to the game's 1-based position in the season.
func (s Season) GameNumbers() map[string]int {
	numbers := make(map[string]int, len(s.Games))
	for _, g := range s.Games {
		numbers[g.GameID] = g.GameNumber
	}
	return numbers
}

func (s Season) PlusMinus() []int {
	pm := make([]int, len(s.Games))
	for i, g := range s.Games {
		pm[i] = g.PlusMinus
	}
	return pm
}

// TeamSeason returns the team's games in date order with game numbers and
// the running win/loss differential. A game stored more than once counts
// once.
func (d *Dataset) TeamSeason(team string) (Season, error) {
	if !d.ValidTeam(team) {
		return Season{}, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	games := []TeamGame{}
	seen := map[string]bool{}
	for _, r := range d.Results {
		if !r.Involves(team) || seen[r.GameID] {
			continue
		}
		seen[r.GameID] = true
		games = append(games, TeamGame{GameResult: r})
	}
	sort.SliceStable(games, func(i, j int) bool {
		if games[i].GameDate != games[j].GameDate {
			return games[i].GameDate < games[j].GameDate
		}
		return games[i].GameID < games[j].GameID
	})

	running := 0
	for i := range games {
		own, opp := games[i].Scores(team)
		games[i].Win = -1
		if own > opp {
			games[i].Win = 1
		}
		running += games[i].Win
		games[i].GameNumber = i + 1
		games[i].PlusMinus = running
	}
	return Season{Team: team, Games: games}, nil
}

// Matrix is the player by game view. All three grids are indexed
// [player][game] with game i holding GameNumber i+1.
type Matrix struct {
	Players      []string
	TotalMinutes []float64
	Minutes      [][]float64
	Annotations  [][]string
	Absent       [][]int
	// Skipped counts boxscore rows that could not be placed: their game has
	// no result or their minutes did not parse.
	Skipped int
}

func (m Matrix) Games() int {
	if len(m.Minutes) == 0 {
		return 0
	}
	return len(m.Minutes[0])
}

type Rotation struct {
	Season Season
	Matrix Matrix
}

type cellKey struct {
	player string
	game   int
}

// Reshape builds the season and the matrix for team. Both share the
// numbering of TeamSeason; boxscore rows are placed through their GameID.
// With pad set an odd roster gets a blank extra row.
func (d *Dataset) Reshape(team string, pad bool) (*Rotation, error) {
	season, err := d.TeamSeason(team)
	if err != nil {
		return nil, err
	}
	numbers := season.GameNumbers()

	var m Matrix
	cells := map[cellKey]nba.PlayerBoxscoreRow{}
	totals := map[string]float64{}
	for _, line := range d.Boxscores {
		if line.Team != team {
			continue
		}
		num, ok := numbers[line.GameID]
		if !ok {
			m.Skipped++
			continue
		}
		row, err := line.Row()
		if err != nil {
			m.Skipped++
			continue
		}
		key := cellKey{player: row.PlayerName, game: num}
		if _, dup := cells[key]; dup {
			continue
		}
		cells[key] = row
		totals[row.PlayerName] += row.Minutes
	}

	for p := range totals {
		m.Players = append(m.Players, p)
	}
	sort.Slice(m.Players, func(i, j int) bool {
		a, b := m.Players[i], m.Players[j]
		if totals[a] != totals[b] {
			return totals[a] > totals[b]
		}
		return a < b
	})
	if pad && len(m.Players)%2 != 0 {
		m.Players = append(m.Players, PaddingPlayer)
	}

	n := len(season.Games)
	for _, p := range m.Players {
		minutes := make([]float64, n)
		annots := make([]string, n)
		absent := make([]int, n)
		for g := 1; g <= n; g++ {
			row, ok := cells[cellKey{player: p, game: g}]
			if !ok {
				absent[g-1] = 1
				continue
			}
			minutes[g-1] = row.Minutes
			switch {
			case row.Starter:
				annots[g-1] = GlyphStarter
			case row.DNP == nba.DNPInjury:
				annots[g-1] = GlyphInjured
			}
		}
		m.TotalMinutes = append(m.TotalMinutes, totals[p])
		m.Minutes = append(m.Minutes, minutes)
		m.Annotations = append(m.Annotations, annots)
		m.Absent = append(m.Absent, absent)
	}

	return &Rotation{Season: season, Matrix: m}, nil
}
