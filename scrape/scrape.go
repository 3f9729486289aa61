package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"nbarotations/browser"
	"nbarotations/nba"
	"nbarotations/utils"
)

// Browser is a PageClient whose session can be restarted.
type Browser interface {
	PageClient
	Refresh(ctx context.Context) error
}

type Store interface {
	AppendResults(results []nba.GameResult) error
	AppendBoxscores(lines []nba.StatLine) error
	ReadAllResults() ([]nba.GameResult, error)
}

type SchedulerConfig struct {
	BaseURL     string
	SeasonStart time.Time
	// StartOffset is the number of days before today the crawl starts at.
	StartOffset int
	// RefreshEvery restarts the browser every n dates. Zero never restarts.
	RefreshEvery      int
	ScoreboardTimeout time.Duration
	Retry             RetryPolicy
	NavigationsPerSec float64
	Now               func() time.Time
}

type Summary struct {
	Dates       int
	Covered     int
	Empty       int
	GamesStored int
	GamesFailed int
	Warnings    int
	// Failures joins the extraction errors of failed games.
	Failures error
}

// Scheduler walks the calendar backwards from today to the season start and
// stores every game it has not seen yet. Games are written one by one so an
// interrupted run keeps what it already stored.
type Scheduler struct {
	cfg       SchedulerConfig
	page      Browser
	store     Store
	extractor *Extractor
	limiter   *rate.Limiter
	runID     string
}

func NewScheduler(cfg SchedulerConfig, page Browser, store Store) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = nba.DefaultBaseURL
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.ScoreboardTimeout == 0 {
		cfg.ScoreboardTimeout = 5 * time.Second
	}
	limit := rate.Inf
	if cfg.NavigationsPerSec > 0 {
		limit = rate.Limit(cfg.NavigationsPerSec)
	}
	return &Scheduler{
		cfg:       cfg,
		page:      page,
		store:     store,
		extractor: NewExtractor(page, cfg.BaseURL, cfg.Retry),
		limiter:   rate.NewLimiter(limit, 1),
		runID:     uuid.NewString()[:8],
	}
}

func (s *Scheduler) logf(format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{s.runID}, args...)...)
}

// Run crawls every date from the start date down to the season start,
// inclusive. Extraction failures are counted and reported in the summary;
// storage failures stop the crawl.
func (s *Scheduler) Run(ctx context.Context) (sum Summary, err error) {
	failures := []error{}
	defer func() { sum.Failures = errors.Join(failures...) }()

	start := utils.Day(s.cfg.SeasonStart)
	date := utils.Day(s.cfg.Now()).AddDate(0, 0, -s.cfg.StartOffset)
	s.logf("scraping from %s back to %s", date.Format(utils.CLIDateLayout), start.Format(utils.CLIDateLayout))

	for i := 0; !date.Before(start); i, date = i+1, date.AddDate(0, 0, -1) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if s.cfg.RefreshEvery > 0 && i > 0 && i%s.cfg.RefreshEvery == 0 {
			s.logf("restarting browser after %d dates", i)
			if err := s.page.Refresh(ctx); err != nil {
				return sum, utils.ErrorWithTrace(err)
			}
		}
		sum.Dates++
		if err := s.scrapeDate(ctx, date, &sum, &failures); err != nil {
			return sum, err
		}
	}
	s.logf("finished: %d dates, %d games stored, %d failed, %d warnings",
		sum.Dates, sum.GamesStored, sum.GamesFailed, sum.Warnings)
	return sum, nil
}

func (s *Scheduler) scrapeDate(ctx context.Context, date time.Time, sum *Summary, failures *[]error) error {
	results, err := s.store.ReadAllResults()
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	links, err := s.ListLinks(ctx, date)
	if err != nil {
		return err
	}
	games := gameLinks(links)
	label := date.Format(utils.CLIDateLayout)

	if covered, ok := s.CheckCoverage(date, games, results); covered {
		sum.Covered++
		if !ok {
			sum.Warnings++
		}
		return nil
	}
	if len(games) == 0 {
		s.logf("%s : No games played (or no games played yet).", label)
		sum.Empty++
		return nil
	}

	s.logf("%s : %d game(s) played.", label, len(games))
	stored, failed, err := s.ScrapeAndPersist(ctx, games)
	sum.GamesStored += stored
	sum.GamesFailed += len(failed)
	*failures = append(*failures, failed...)
	return err
}

// ListLinks returns every "Box Score" link on the scoreboard for date,
// including the placeholder the page always lists first.
func (s *Scheduler) ListLinks(ctx context.Context, date time.Time) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := s.page.Navigate(ctx, nba.ScoreboardURL(s.cfg.BaseURL, date)); err != nil {
		return nil, err
	}
	if err := s.page.WaitForElement(ctx, selScoreboard, s.cfg.ScoreboardTimeout); err != nil {
		if !errors.Is(err, browser.ErrTimeout) {
			return nil, err
		}
		s.logf("WARNING: scoreboard for %s timed out, using what has rendered: %v", date.Format(utils.CLIDateLayout), err)
	}
	doc, err := s.page.CurrentDocument(ctx)
	if err != nil {
		return nil, err
	}
	links := []string{}
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if strings.TrimSpace(a.Text()) != "Box Score" {
			return
		}
		href, _ := a.Attr("href")
		links = append(links, href)
	})
	return links, nil
}

// CheckCoverage reports whether date already has results stored. When it
// does, ok tells whether the stored count matches the scoreboard; a mismatch
// is only logged; fixing it means deleting the date and scraping again.
func (s *Scheduler) CheckCoverage(date time.Time, games []string, results []nba.GameResult) (covered, ok bool) {
	key := date.Format(utils.StoredDateLayout)
	stored := 0
	for _, r := range results {
		if r.GameDate == key {
			stored++
		}
	}
	if stored == 0 {
		return false, true
	}
	label := date.Format(utils.CLIDateLayout)
	s.logf("%s is already in the database with %d game(s).", label, stored)
	if stored != len(games) {
		s.logf("WARNING: %s has %d stored game(s) but the scoreboard lists %d. Consider deleting this date and scraping it again.",
			label, stored, len(games))
		return true, false
	}
	return true, true
}

// ScrapeAndPersist extracts and stores each game in turn. Games that fail to
// extract are skipped and returned; a storage error stops the date.
func (s *Scheduler) ScrapeAndPersist(ctx context.Context, links []string) (stored int, failed []error, err error) {
	for _, link := range links {
		if err := s.limiter.Wait(ctx); err != nil {
			return stored, failed, err
		}
		game, err := s.extractor.ExtractGame(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return stored, failed, ctx.Err()
			}
			s.logf("failed to scrape %s: %v", link, err)
			failed = append(failed, fmt.Errorf("%s: %w", link, err))
			continue
		}
		if err := s.store.AppendResults([]nba.GameResult{game.Result}); err != nil {
			return stored, failed, utils.ErrorWithTrace(err)
		}
		lines := append(append([]nba.StatLine{}, game.Home...), game.Away...)
		if err := s.store.AppendBoxscores(lines); err != nil {
			return stored, failed, utils.ErrorWithTrace(err)
		}
		s.logf("stored %s", game.Result.ToString())
		stored++
	}
	return stored, failed, nil
}

// gameLinks drops the placeholder first link.
func gameLinks(links []string) []string {
	if len(links) <= 1 {
		return nil
	}
	return links[1:]
}
