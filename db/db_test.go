package db

import (
	"path/filepath"
	"testing"

	"nbarotations/nba"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err := s.SetupDatabase(); err != nil {
		t.Fatal(err)
	}
	if err := s.RunMigrations(); err != nil {
		t.Fatal(err)
	}
	if err := s.ValidateMigrations(); err != nil {
		t.Fatal(err)
	}
	return s
}

func line(player, team, gameID string, starter bool) nba.StatLine {
	l := nba.NewStatLine([]string{player, "30:00", "5", "10", ".500"})
	l.Team = team
	l.GameID = gameID
	l.Starter = starter
	return l
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	results := []nba.GameResult{
		{GameID: "0021700002", GameDate: "2017-10-18", HomeTeam: "A", HomeScore: 100, AwayTeam: "B", AwayScore: 90},
		{GameID: "0021700001", GameDate: "2017-10-17", HomeTeam: "C", HomeScore: 99, AwayTeam: "D", AwayScore: 101},
		{GameID: "0021700003", GameDate: "2017-10-18", HomeTeam: "C", HomeScore: 88, AwayTeam: "A", AwayScore: 80},
	}
	if err := s.AppendResults(results); err != nil {
		t.Fatal(err)
	}
	lines := []nba.StatLine{
		line("p1", "A", "0021700002", true),
		line("p2", "B", "0021700002", false),
		line("p3", "C", "0021700001", true),
		line("p4", "D", "0021700001", false),
		line("p5", "C", "0021700003", true),
	}
	if err := s.AppendBoxscores(lines); err != nil {
		t.Fatal(err)
	}
}

func TestReadAllOnFreshDatabase(t *testing.T) {
	s := New("sqlite3", filepath.Join(t.TempDir(), "empty.db"))
	if err := s.SetupDatabase(); err != nil {
		t.Fatal(err)
	}
	results, err := s.ReadAllResults()
	if err != nil {
		t.Fatalf("ReadAllResults on missing table: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
	lines, err := s.ReadAllBoxscores()
	if err != nil {
		t.Fatalf("ReadAllBoxscores on missing table: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %d boxscore rows, want 0", len(lines))
	}
	n, err := s.DeleteByDate("2017-10-17")
	if err != nil || n != 0 {
		t.Errorf("DeleteByDate on missing table = %d, %v", n, err)
	}
}

func TestAppendAndRead(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	results, err := s.ReadAllResults()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].GameID != "0021700001" || results[0].AwayScore != 101 {
		t.Errorf("results not ordered by date: %+v", results[0])
	}

	lines, err := s.ReadAllBoxscores()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 5 {
		t.Fatalf("got %d boxscore rows, want 5", len(lines))
	}
	first := lines[0]
	if first.PlayerName != "p1" || first.Min != "30:00" || first.FGPct != ".500" || !first.Starter || first.Team != "A" {
		t.Errorf("round trip mismatch: %+v", first)
	}
	if lines[1].Starter {
		t.Errorf("starter flag not preserved: %+v", lines[1])
	}
}

func TestAppendIsNotDeduplicated(t *testing.T) {
	s := newTestStore(t)
	r := nba.GameResult{GameID: "0021700001", GameDate: "2017-10-17", HomeTeam: "C", AwayTeam: "D"}
	for i := 0; i < 2; i++ {
		if err := s.AppendResults([]nba.GameResult{r}); err != nil {
			t.Fatal(err)
		}
	}
	results, err := s.ReadAllResults()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestDeleteByDate(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	n, err := s.DeleteByDate("2017-10-18")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted %d games, want 2", n)
	}

	results, err := s.ReadAllResults()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.GameDate == "2017-10-18" {
			t.Errorf("result %s survived deletion", r.GameID)
		}
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}

	lines, err := s.ReadAllBoxscores()
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range lines {
		if l.GameID == "0021700002" || l.GameID == "0021700003" {
			t.Errorf("boxscore row %s/%s survived deletion", l.GameID, l.PlayerName)
		}
	}
	if len(lines) != 2 {
		t.Errorf("got %d boxscore rows, want 2", len(lines))
	}

	n, err = s.DeleteByDate("2017-10-18")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second delete removed %d games, want 0", n)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.RunMigrations(); err != nil {
		t.Fatal(err)
	}
}
