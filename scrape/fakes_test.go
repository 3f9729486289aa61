package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"nbarotations/browser"
	"nbarotations/nba"
)

// fakePage serves canned HTML per URL. A URL can have several snapshots to
// imitate a page that renders in steps; the last one repeats.
type fakePage struct {
	pages       map[string][]string
	served      map[string]int
	current     string
	navigations []string
	refreshes   int
	waitErr     error
}

func newFakePage() *fakePage {
	return &fakePage{pages: map[string][]string{}, served: map[string]int{}}
}

func (p *fakePage) add(url string, snapshots ...string) {
	p.pages[url] = append(p.pages[url], snapshots...)
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigations = append(p.navigations, url)
	p.current = url
	return nil
}

func (p *fakePage) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	return p.waitErr
}

func (p *fakePage) CurrentDocument(ctx context.Context) (*goquery.Document, error) {
	snaps := p.pages[p.current]
	if len(snaps) == 0 {
		return browser.ParseDocument("<html><body></body></html>")
	}
	i := p.served[p.current]
	if i >= len(snaps) {
		i = len(snaps) - 1
	}
	p.served[p.current]++
	return browser.ParseDocument(snaps[i])
}

func (p *fakePage) Refresh(ctx context.Context) error {
	p.refreshes++
	return nil
}

type fakeStore struct {
	results   []nba.GameResult
	boxscores []nba.StatLine
	writes    int
	failWrite error
}

func (s *fakeStore) AppendResults(results []nba.GameResult) error {
	if s.failWrite != nil {
		return s.failWrite
	}
	s.writes++
	s.results = append(s.results, results...)
	return nil
}

func (s *fakeStore) AppendBoxscores(lines []nba.StatLine) error {
	if s.failWrite != nil {
		return s.failWrite
	}
	s.writes++
	s.boxscores = append(s.boxscores, lines...)
	return nil
}

func (s *fakeStore) ReadAllResults() ([]nba.GameResult, error) {
	return append([]nba.GameResult{}, s.results...), nil
}

type team struct {
	name  string
	score int
	rows  [][]string
}

func statRow(name, min, fgm string) []string {
	row := []string{name, min, fgm}
	for len(row) < nba.StatColumns {
		row = append(row, "1")
	}
	return row
}

func roster(prefix string, n int) [][]string {
	rows := [][]string{}
	positions := []string{"F", "F", "C", "G", "G"}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s Player%d", prefix, i)
		if i < len(positions) {
			name += " " + positions[i]
		} else {
			name += " "
		}
		rows = append(rows, statRow(name, "20:30", "4"))
	}
	return rows
}

func tableHTML(rows [][]string) string {
	var b strings.Builder
	b.WriteString(`<div class="nba-stat-table__overflow"><table><thead><tr><th>PLAYER</th></tr></thead><tbody>`)
	for _, r := range rows {
		b.WriteString("<tr>")
		for i, c := range r {
			if i == 0 {
				fmt.Fprintf(&b, `<td><a href="/player/1/">%s</a></td>`, c)
				continue
			}
			fmt.Fprintf(&b, "<td>%s</td>", c)
		}
		b.WriteString("</tr>")
	}
	b.WriteString(`</tbody></table></div>`)
	return b.String()
}

func summaryHTML(home, away team, date string) string {
	return fmt.Sprintf(`
		<div class="game-summary-team"><div class="game-summary-team__name"><a href="/team/1/">%s</a></div>
		<div class="game-summary-team__right"><span>%d</span></div></div>
		<div class="game-summary-team"><div class="game-summary-team__name"><a href="/team/2/">%s</a></div>
		<div class="game-summary-team__right"><span>%d</span></div></div>
		<div class="game-summary__date">%s</div>`,
		home.name, home.score, away.name, away.score, date)
}

func gamePage(home, away team, date string) string {
	return "<html><body>" + summaryHTML(home, away, date) + tableHTML(home.rows) + tableHTML(away.rows) + "</body></html>"
}

func scoreboardPage(links ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="linescores"></div><a href="">Box Score</a>`)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s"> Box Score </a><a href="%s">Game Preview</a>`, l, l)
	}
	b.WriteString("</body></html>")
	return b.String()
}
