package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"nbarotations/nba"
	"nbarotations/utils"
)

const (
	ModeScrape = "scrape"
	ModeRender = "render"
	ModeDelete = "delete"
	ModeServe  = "serve"
)

const DefaultSeasonStart = "17/10/2017"

var DefaultExcludedTeams = []string{
	"Team LeBron",
	"Team Stephen",
}

type Config struct {
	Mode string

	DatabaseDriver string
	DatabaseFile   string

	BaseURL           string
	SeasonStart       time.Time
	StartOffset       int
	RefreshEvery      int
	PollInterval      time.Duration
	RenderTimeout     time.Duration
	ScoreboardTimeout time.Duration
	NavigationsPerSec float64
	ChromeURL         string

	OutputDir     string
	Team          string
	ExcludedTeams []string
	PadRoster     bool

	Addr       string
	DeleteDate string
}

func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("nbarotations", flag.ContinueOnError)

	binPath, err := os.Executable()
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}

	cfg := &Config{}
	var seasonStart string
	var noPad bool
	fs.StringVar(&cfg.DatabaseDriver, "db-driver", "sqlite3", "database driver: sqlite3 or postgres")
	fs.StringVar(&cfg.DatabaseFile, "db", filepath.Join(filepath.Dir(binPath), "NBA_data.db"), "sqlite file or postgres URL")
	fs.StringVar(&cfg.BaseURL, "base-url", nba.DefaultBaseURL, "stats site base url")
	fs.StringVar(&seasonStart, "season-start", DefaultSeasonStart, "first day of the season (DD/MM/YYYY)")
	fs.IntVar(&cfg.StartOffset, "start-offset", 0, "days before today to start scraping from")
	fs.IntVar(&cfg.RefreshEvery, "refresh-every", 20, "restart the browser every n dates, 0 disables")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 3*time.Second, "delay between render polls")
	fs.DurationVar(&cfg.RenderTimeout, "render-timeout", 2*time.Minute, "give up on a game page after this long")
	fs.DurationVar(&cfg.ScoreboardTimeout, "scoreboard-timeout", 5*time.Second, "wait this long for the scoreboard to load")
	fs.Float64Var(&cfg.NavigationsPerSec, "rate", 1, "page navigations per second")
	fs.StringVar(&cfg.ChromeURL, "chrome-url", "", "remote devtools url, empty starts a local headless chrome")
	fs.StringVarP(&cfg.OutputDir, "output", "o", "images", "heatmap output directory")
	fs.StringVarP(&cfg.Team, "team", "t", "", "only render this team")
	fs.StringSliceVar(&cfg.ExcludedTeams, "exclude-team", DefaultExcludedTeams, "team names left out of the team list")
	fs.BoolVar(&noPad, "no-pad", false, "do not pad rosters to an even number of players")
	fs.StringVar(&cfg.Addr, "addr", ":8080", "http listen address")
	fs.StringVarP(&cfg.DeleteDate, "date", "d", "", "date to delete (DD/MM/YYYY)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		cfg.Mode = fs.Arg(0)
	}
	cfg.PadRoster = !noPad

	start, err := utils.ParseCLIDate(seasonStart)
	if err != nil {
		return nil, err
	}
	cfg.SeasonStart = start

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeScrape, ModeRender, ModeServe:
	case ModeDelete:
		if _, err := utils.ParseCLIDate(c.DeleteDate); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("missing command, expected one of %s|%s|%s|%s", ModeScrape, ModeRender, ModeDelete, ModeServe)
	default:
		return fmt.Errorf("unknown command %q", c.Mode)
	}
	if c.DatabaseDriver != "sqlite3" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported db driver %q", c.DatabaseDriver)
	}
	if c.DatabaseFile == "" {
		return fmt.Errorf("db is required")
	}
	if c.StartOffset < 0 {
		return fmt.Errorf("start-offset must not be negative")
	}
	if c.RefreshEvery < 0 {
		return fmt.Errorf("refresh-every must not be negative")
	}
	if c.PollInterval <= 0 || c.RenderTimeout <= 0 || c.ScoreboardTimeout <= 0 {
		return fmt.Errorf("poll-interval, render-timeout and scoreboard-timeout must be positive")
	}
	if c.NavigationsPerSec <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	return nil
}
