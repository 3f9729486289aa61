package db

import (
	"embed"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"nbarotations/nba"
	"nbarotations/utils"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the results/boxscores store. Every operation opens its own
// connection and closes it before returning, so nothing is shared between
// calls.
type Store struct {
	driver string
	dsn    string
}

// New returns a store for driver ("sqlite3" or "postgres"). For sqlite3 dsn
// is the database file, for postgres a postgres:// URL.
func New(driver, dsn string) *Store {
	return &Store{driver: driver, dsn: dsn}
}

func (s *Store) open() (*sqlx.DB, error) {
	db, err := sqlx.Open(s.driver, s.dsn)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return db, nil
}

// SetupDatabase creates the sqlite file if it does not exist yet.
func (s *Store) SetupDatabase() error {
	if s.driver != "sqlite3" {
		return nil
	}
	_, err := os.Stat(s.dsn)
	if os.IsNotExist(err) {
		log.Println("Database file not found. Creating a new database.")
		file, err := os.Create(s.dsn)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
		file.Close()
	} else if err != nil {
		return utils.ErrorWithTrace(err)
	}
	return nil
}

func (s *Store) migrationURL() string {
	if s.driver == "sqlite3" {
		return "sqlite3://" + s.dsn
	}
	return s.dsn
}

func (s *Store) RunMigrations() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, s.migrationURL())
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return utils.ErrorWithTrace(err)
	}
	return nil
}

func (s *Store) ValidateMigrations() error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, table := range []string{"results", "boxscores"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return utils.ErrorWithTrace(fmt.Errorf("table %s not usable: %w", table, err))
		}
	}
	return nil
}

// tableAbsent reports whether err means the table has not been created yet.
func tableAbsent(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "no such table")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) AppendResults(results []nba.GameResult) error {
	if len(results) == 0 {
		return nil
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO results (
			"GameID", "GameDate", "HomeTeam", "HomeScore", "AwayTeam", "AwayScore"
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	for _, r := range results {
		_, err := tx.Exec(query, r.GameID, r.GameDate, r.HomeTeam, r.HomeScore, r.AwayTeam, r.AwayScore)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
	}

	return tx.Commit()
}

func (s *Store) AppendBoxscores(lines []nba.StatLine) error {
	if len(lines) == 0 {
		return nil
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO boxscores (
			"Player Name", "Min", "FGM", "FGA", "FG%", "3PM", "3PA", "3P%",
			"FTM", "FTA", "FT%", "OREB", "DREB", "REB", "AST", "TOV", "STL",
			"BLK", "PF", "PTS", "+/-", "Team", "Starter", "GameID"
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?
		)
	`)
	for _, l := range lines {
		_, err := tx.Exec(query,
			l.PlayerName, l.Min, l.FGM, l.FGA, l.FGPct, l.ThreePM, l.ThreePA, l.ThreePct,
			l.FTM, l.FTA, l.FTPct, l.OREB, l.DREB, l.REB, l.AST, l.TOV, l.STL,
			l.BLK, l.PF, l.PTS, l.PlusMinus, l.Team, boolToInt(l.Starter), l.GameID,
		)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
	}

	return tx.Commit()
}

// ReadAllResults returns every stored result ordered by date. A store
// without a results table yields no rows.
func (s *Store) ReadAllResults() ([]nba.GameResult, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	results := []nba.GameResult{}
	err = db.Select(&results, `SELECT * FROM results ORDER BY "GameDate", "GameID"`)
	if err != nil {
		if tableAbsent(err) {
			return []nba.GameResult{}, nil
		}
		return nil, utils.ErrorWithTrace(err)
	}
	return results, nil
}

func (s *Store) ReadAllBoxscores() ([]nba.StatLine, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	lines := []nba.StatLine{}
	err = db.Select(&lines, `SELECT * FROM boxscores`)
	if err != nil {
		if tableAbsent(err) {
			return []nba.StatLine{}, nil
		}
		return nil, utils.ErrorWithTrace(err)
	}
	return lines, nil
}

// DeleteByDate removes every result stored for date (YYYY-MM-DD) together
// with the boxscore rows of those games. It returns the number of games
// removed; zero means there was nothing to delete.
func (s *Store) DeleteByDate(date string) (int, error) {
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return 0, utils.ErrorWithTrace(err)
	}
	defer tx.Rollback()

	gameIDs := []string{}
	err = tx.Select(&gameIDs, tx.Rebind(`SELECT "GameID" FROM results WHERE "GameDate" = ?`), date)
	if err != nil {
		if tableAbsent(err) {
			return 0, nil
		}
		return 0, utils.ErrorWithTrace(err)
	}
	if len(gameIDs) == 0 {
		return 0, nil
	}

	deleteBoxscores := tx.Rebind(`DELETE FROM boxscores WHERE "GameID" = ?`)
	for _, id := range gameIDs {
		if _, err := tx.Exec(deleteBoxscores, id); err != nil {
			return 0, utils.ErrorWithTrace(err)
		}
	}
	res, err := tx.Exec(tx.Rebind(`DELETE FROM results WHERE "GameDate" = ?`), date)
	if err != nil {
		return 0, utils.ErrorWithTrace(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, utils.ErrorWithTrace(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, utils.ErrorWithTrace(err)
	}
	return int(n), nil
}
