package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nbarotations/browser"
	"nbarotations/config"
	"nbarotations/db"
	"nbarotations/jobs"
	"nbarotations/rotation"
	"nbarotations/scrape"
	"nbarotations/utils"
	"nbarotations/web"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	store := db.New(cfg.DatabaseDriver, cfg.DatabaseFile)
	if err := store.SetupDatabase(); err != nil {
		log.Fatal(err)
	}
	if err := store.RunMigrations(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case config.ModeScrape:
		err = runScrape(ctx, cfg, store)
	case config.ModeRender:
		err = runRender(cfg, store)
	case config.ModeDelete:
		err = runDelete(cfg, store)
	case config.ModeServe:
		err = runServe(ctx, cfg, store)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runScrape(ctx context.Context, cfg *config.Config, store *db.Store) error {
	chrome, err := browser.New(ctx, cfg.ChromeURL)
	if err != nil {
		return err
	}
	defer chrome.Close()

	scheduler := scrape.NewScheduler(scrape.SchedulerConfig{
		BaseURL:           cfg.BaseURL,
		SeasonStart:       cfg.SeasonStart,
		StartOffset:       cfg.StartOffset,
		RefreshEvery:      cfg.RefreshEvery,
		ScoreboardTimeout: cfg.ScoreboardTimeout,
		Retry:             scrape.RetryPolicy{Interval: cfg.PollInterval, Timeout: cfg.RenderTimeout},
		NavigationsPerSec: cfg.NavigationsPerSec,
	}, chrome, store)

	sum, err := scheduler.Run(ctx)
	if sum.Failures != nil {
		log.Printf("WARNING: %d games could not be scraped:\n%v", sum.GamesFailed, sum.Failures)
	}
	if errors.Is(err, context.Canceled) {
		log.Printf("interrupted, %d games stored before stopping", sum.GamesStored)
		return nil
	}
	return err
}

func runRender(cfg *config.Config, store *db.Store) error {
	d, err := rotation.Load(store, cfg.ExcludedTeams)
	if err != nil {
		return err
	}
	if cfg.Team != "" {
		path, err := jobs.RenderTeam(d, cfg.Team, cfg.OutputDir, cfg.PadRoster)
		if errors.Is(err, rotation.ErrUnknownTeam) {
			fmt.Println("That name is not valid, please enter a valid team name (case sensitive)")
			return nil
		}
		if err != nil {
			return err
		}
		log.Printf("wrote %s", path)
		return nil
	}
	paths, err := jobs.RenderAll(d, cfg.OutputDir, cfg.PadRoster)
	log.Printf("wrote %d heatmaps to %s", len(paths), cfg.OutputDir)
	return err
}

func runDelete(cfg *config.Config, store *db.Store) error {
	date, err := utils.StoredDate(cfg.DeleteDate)
	if err != nil {
		return err
	}
	n, err := store.DeleteByDate(date)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("No games to delete with that date.")
		return nil
	}
	fmt.Printf("Deleted %d games played on %s.\n", n, cfg.DeleteDate)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, store *db.Store) error {
	e := web.NewServer(store, cfg.ExcludedTeams, cfg.PadRoster).Echo()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Println(utils.ErrorWithTrace(err))
		}
	}()

	if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
