package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// LoadCorpus reads historical rows from a CSV or JSON file, dispatching on
// the extension.
func LoadCorpus(path string) ([]core.BacktestRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".json":
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", filepath.Ext(path))
	}
}

// LoadJSON reads a JSON array of rows.
func LoadJSON(path string) ([]core.BacktestRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var rows []core.BacktestRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return rows, nil
}

// LoadCSV reads rows from a headered CSV file. Expected columns: game_id,
// league, date, home_team, away_team, home_odds, away_odds, winner (winner
// may be empty for unsettled games). Column order is free; unknown columns
// are ignored.
func LoadCSV(path string) ([]core.BacktestRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"game_id", "league", "date", "home_team", "away_team", "home_odds", "away_odds"} {
		if _, ok := colIndex[required]; !ok {
			return nil, core.NewDataError(required, "missing column in corpus header")
		}
	}

	var rows []core.BacktestRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		line++

		row := core.BacktestRow{
			GameID:   record[colIndex["game_id"]],
			League:   record[colIndex["league"]],
			HomeTeam: record[colIndex["home_team"]],
			AwayTeam: record[colIndex["away_team"]],
		}
		row.Date, err = parseDate(record[colIndex["date"]])
		if err != nil {
			return nil, core.NewDataError("date", "line %d: %v", line, err)
		}
		row.HomeOdds, err = strconv.ParseFloat(record[colIndex["home_odds"]], 64)
		if err != nil {
			return nil, core.NewDataError("home_odds", "line %d: %v", line, err)
		}
		row.AwayOdds, err = strconv.ParseFloat(record[colIndex["away_odds"]], 64)
		if err != nil {
			return nil, core.NewDataError("away_odds", "line %d: %v", line, err)
		}
		if idx, ok := colIndex["winner"]; ok {
			row.Winner = strings.TrimSpace(record[idx])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
