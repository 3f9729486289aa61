package scrape

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"nbarotations/nba"
	"nbarotations/utils"
)

const (
	selScoreboard = "div.linescores"
	selTeamName   = "div.game-summary-team__name"
	selTeamScore  = "div.game-summary-team__right"
	selGameDate   = "div.game-summary__date"
	selStatTable  = "div.nba-stat-table__overflow"
)

// ErrRenderTimeout means a page never reached a parseable state within the
// retry policy's deadline.
var ErrRenderTimeout = errors.New("page did not render in time")

// PageClient is the browser surface the scraper needs.
type PageClient interface {
	Navigate(ctx context.Context, url string) error
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	CurrentDocument(ctx context.Context) (*goquery.Document, error)
}

// RetryPolicy polls every Interval until Timeout has passed.
type RetryPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	Interval: 3 * time.Second,
	Timeout:  2 * time.Minute,
}

// poll snapshots the current page and hands it to attempt until attempt
// succeeds. Attempt errors mean "not rendered yet".
func poll(ctx context.Context, page PageClient, policy RetryPolicy, what string, attempt func(*goquery.Document) error) error {
	pollCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()
	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		doc, err := page.CurrentDocument(pollCtx)
		if err == nil {
			if err = attempt(doc); err == nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s after %s: %v", ErrRenderTimeout, what, policy.Timeout, err)
		case <-ticker.C:
		}
	}
}

type Game struct {
	Result nba.GameResult
	Home   []nba.StatLine
	Away   []nba.StatLine
}

type Extractor struct {
	page    PageClient
	baseURL string
	policy  RetryPolicy
}

func NewExtractor(page PageClient, baseURL string, policy RetryPolicy) *Extractor {
	return &Extractor{page: page, baseURL: baseURL, policy: policy}
}

type summary struct {
	teams  [2]string
	scores [2]int
	date   time.Time
}

// ExtractGame loads a game page from its boxscore link ("/game/<id>/") and
// reads the result and both teams' stat tables, home team first.
func (e *Extractor) ExtractGame(ctx context.Context, link string) (*Game, error) {
	gameID, err := nba.GameIDFromLink(link)
	if err != nil {
		return nil, err
	}
	if err := e.page.Navigate(ctx, nba.GameURL(e.baseURL, link)); err != nil {
		return nil, err
	}

	var sum summary
	err = poll(ctx, e.page, e.policy, "game summary "+gameID, func(doc *goquery.Document) error {
		s, err := readSummary(doc)
		if err != nil {
			return err
		}
		sum = s
		return nil
	})
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}

	var tables [2][]nba.StatLine
	err = poll(ctx, e.page, e.policy, "stat tables "+gameID, func(doc *goquery.Document) error {
		found := doc.Find(selStatTable)
		if found.Length() != 2 {
			return fmt.Errorf("found %d stat tables, want 2", found.Length())
		}
		found.Each(func(i int, table *goquery.Selection) {
			tables[i] = readTable(table)
		})
		return nil
	})
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}

	game := &Game{
		Result: nba.GameResult{
			GameID:    gameID,
			GameDate:  sum.date.Format(utils.StoredDateLayout),
			HomeTeam:  sum.teams[0],
			HomeScore: sum.scores[0],
			AwayTeam:  sum.teams[1],
			AwayScore: sum.scores[1],
		},
		Home: tables[0],
		Away: tables[1],
	}
	for i := range game.Home {
		game.Home[i].Team = sum.teams[0]
		game.Home[i].GameID = gameID
	}
	for i := range game.Away {
		game.Away[i].Team = sum.teams[1]
		game.Away[i].GameID = gameID
	}
	return game, nil
}

func readSummary(doc *goquery.Document) (summary, error) {
	var sum summary

	names := doc.Find(selTeamName)
	if names.Length() != 2 {
		return sum, fmt.Errorf("found %d team names, want 2", names.Length())
	}
	var err error
	names.Each(func(i int, s *goquery.Selection) {
		text := s.Text()
		if child := s.Children().First(); child.Length() > 0 {
			text = child.Text()
		}
		sum.teams[i] = strings.TrimSpace(text)
		if sum.teams[i] == "" && err == nil {
			err = fmt.Errorf("team name %d is empty", i)
		}
	})
	if err != nil {
		return sum, err
	}

	scores := doc.Find(selTeamScore)
	if scores.Length() != 2 {
		return sum, fmt.Errorf("found %d scores, want 2", scores.Length())
	}
	scores.Each(func(i int, s *goquery.Selection) {
		n, convErr := strconv.Atoi(digits(s.Text()))
		if convErr != nil && err == nil {
			err = fmt.Errorf("score %d: %w", i, convErr)
		}
		sum.scores[i] = n
	})
	if err != nil {
		return sum, err
	}

	date := doc.Find(selGameDate).First()
	if date.Length() == 0 {
		return sum, fmt.Errorf("no game date")
	}
	sum.date, err = nba.ParseGameDate(date.Text())
	return sum, err
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// readTable reads a team table in document order. Starters carry their
// position after the name ("LeBron James F") which is dropped.
func readTable(table *goquery.Selection) []nba.StatLine {
	lines := []nba.StatLine{}
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) == 0 {
			return
		}
		starter := len(lines) < nba.StartersPerTeam
		cells[0] = cleanPlayerName(cells[0], starter)
		line := nba.NewStatLine(cells)
		line.Starter = starter
		lines = append(lines, line)
	})
	return lines
}

func cleanPlayerName(raw string, starter bool) string {
	tokens := strings.Fields(raw)
	if starter && len(tokens) > 1 {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}
