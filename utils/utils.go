package utils

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// CLIDateLayout is DD/MM/YYYY, the format used on the command line.
const CLIDateLayout = "02/01/2006"

// StoredDateLayout is how GameDate is persisted.
const StoredDateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

func ErrorWithTrace(e error) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d\n\t%w", file, line, e)
}

// ParseCLIDate parses a DD/MM/YYYY date into midnight UTC.
func ParseCLIDate(s string) (time.Time, error) {
	t, err := time.Parse(CLIDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q, expected DD/MM/YYYY", ErrInvalidDate, s)
	}
	return t, nil
}

// StoredDate converts a DD/MM/YYYY date to the stored GameDate form.
func StoredDate(cliDate string) (string, error) {
	t, err := ParseCLIDate(cliDate)
	if err != nil {
		return "", err
	}
	return t.Format(StoredDateLayout), nil
}

func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
