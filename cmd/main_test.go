package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runFind(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"SLOTFINDER_SOURCE", "SLOTFINDER_ICS_FILE", "SLOTFINDER_SELF_EMAIL", "CALDAV_CALENDARS"} {
		t.Setenv(key, "")
	}
	t.Setenv("PRIMARY_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	app := &cli.App{Name: "slotfinder", Writer: &out, Commands: []*cli.Command{findCommand()}}
	err := app.Run(append([]string{"slotfinder", "find"}, args...))
	return out.String(), err
}

func TestFindWithDemoSource(t *testing.T) {
	out, err := runFind(t, "--source", "demo", "-a", "John Smith <john@example.com>, jane@example.com", "--include-self")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11, "header plus ten proposals")
	require.Contains(t, lines[0], "AVAILABILITY")
	for _, line := range lines[1:] {
		require.Contains(t, line, "of 3")
	}
}

func TestFindWritesICS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holds.ics")
	_, err := runFind(t, "-a", "john@example.com", "--ics-out", path, "--sort", "dateTime")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 10, strings.Count(string(data), "BEGIN:VEVENT"))
}

func TestFindRejectsBadInput(t *testing.T) {
	_, err := runFind(t, "-a", "not an email")
	require.ErrorContains(t, err, "at least one attendee")

	_, err = runFind(t, "-a", "john@example.com", "--start-time", "17:00", "--end-time", "09:00")
	require.ErrorContains(t, err, "end time must be after start time")

	_, err = runFind(t, "-a", "john@example.com", "--start-date", "2000-01-03")
	require.ErrorContains(t, err, "start date")

	_, err = runFind(t, "-a", "john@example.com", "--sort", "colour")
	require.Error(t, err)

	_, err = runFind(t, "-a", "john@example.com", "--source", "outlook")
	require.Error(t, err)
}

func TestFindNoSlots(t *testing.T) {
	out, err := runFind(t, "-a", "john@example.com", "--days", "0")
	require.NoError(t, err)
	require.Contains(t, out, "No available meeting times found")
}

func TestGoogleAccountSelection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	_, err := googleAccount(logger, "", dir)
	require.ErrorContains(t, err, "no google accounts found")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "token-work.json"), []byte("{}"), 0o600))
	account, err := googleAccount(logger, "", dir)
	require.NoError(t, err)
	require.Equal(t, "work", account)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "token-personal.json"), []byte("{}"), 0o600))
	_, err = googleAccount(logger, "", dir)
	require.ErrorContains(t, err, "GOOGLE_ACCOUNT")

	account, err = googleAccount(logger, "personal", dir)
	require.NoError(t, err)
	require.Equal(t, "personal", account)
}

func TestFindCountsCaseVariantsOnce(t *testing.T) {
	out, err := runFind(t, "-a", "john@example.com, John@Example.com, jane@example.com")
	require.NoError(t, err)
	require.NotContains(t, out, "of 3")
	require.Contains(t, out, "of 2")
}

func TestContainsIgnoresCase(t *testing.T) {
	require.True(t, contains([]string{"Demo@Example.com"}, "demo@example.com"))
	require.False(t, contains(nil, "demo@example.com"))
}
