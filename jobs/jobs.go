package jobs

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"nbarotations/heatmap"
	"nbarotations/rotation"
	"nbarotations/utils"
)

func Title(rot *rotation.Rotation) string {
	return fmt.Sprintf("Minutes for %s rotation, current record: %s", rot.Season.Team, rot.Season.RecordString())
}

// ChartFor lines a team's rotation up with what the renderer draws.
func ChartFor(rot *rotation.Rotation) heatmap.Chart {
	return heatmap.Chart{
		Title:       Title(rot),
		Games:       len(rot.Season.Games),
		Players:     rot.Matrix.Players,
		Minutes:     rot.Matrix.Minutes,
		Annotations: rot.Matrix.Annotations,
		Absent:      rot.Matrix.Absent,
		PlusMinus:   rot.Season.PlusMinus(),
	}
}

// WriteTeam renders team's heatmap to w.
func WriteTeam(w io.Writer, d *rotation.Dataset, team string, pad bool) error {
	rot, err := d.Reshape(team, pad)
	if err != nil {
		return err
	}
	if rot.Matrix.Skipped > 0 {
		log.Printf("%s: skipped %d boxscore rows without a matching result", team, rot.Matrix.Skipped)
	}
	return heatmap.Render(w, ChartFor(rot))
}

func FileName(outputDir, team string) string {
	return filepath.Join(outputDir, strings.ReplaceAll(team, string(filepath.Separator), "-")+".png")
}

// RenderTeam writes <outputDir>/<team>.png and returns its path.
func RenderTeam(d *rotation.Dataset, team, outputDir string, pad bool) (string, error) {
	if !d.ValidTeam(team) {
		return "", fmt.Errorf("%w: %q", rotation.ErrUnknownTeam, team)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", utils.ErrorWithTrace(err)
	}
	path := FileName(outputDir, team)
	f, err := os.Create(path)
	if err != nil {
		return "", utils.ErrorWithTrace(err)
	}
	if err := WriteTeam(f, d, team, pad); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", utils.ErrorWithTrace(err)
	}
	return path, nil
}

// RenderAll renders every team in the dataset, carrying on past failures.
func RenderAll(d *rotation.Dataset, outputDir string, pad bool) ([]string, error) {
	paths := []string{}
	errs := []error{}
	for _, team := range d.Teams() {
		log.Println("Generating plot for " + team)
		path, err := RenderTeam(d, team, outputDir, pad)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", team, err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}
