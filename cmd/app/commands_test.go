package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvaluateShortHistoryKeepsBaseScore(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "environment: test\n")
	input := `{
  "run_id": "cli-1",
  "market": {"vix": 14},
  "tickers": [{
    "ticker": "INFY",
    "base_score": 55,
    "bars": [
      {"date": "2026-03-02T00:00:00Z", "open": 100, "high": 101, "low": 99, "close": 100, "volume": 1000},
      {"date": "2026-03-03T00:00:00Z", "open": 100, "high": 100, "low": 95, "close": 96, "volume": 1500}
    ]
  }]
}`

	out, err := execute(t, input, "evaluate", "--config", cfgPath, "--input", "-")
	require.NoError(t, err)

	var res struct {
		RunID     string `json:"run_id"`
		Decisions []struct {
			Ticker       string  `json:"ticker"`
			BoostApplied float64 `json:"boost_applied"`
			FinalScore   float64 `json:"final_score"`
		} `json:"decisions"`
		Published bool `json:"published"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "cli-1", res.RunID)
	require.Len(t, res.Decisions, 1)
	assert.Equal(t, "INFY", res.Decisions[0].Ticker)
	assert.Zero(t, res.Decisions[0].BoostApplied)
	assert.Equal(t, 55.0, res.Decisions[0].FinalScore)
	assert.False(t, res.Published)
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "environment: test\n")
	inputPath := writeFile(t, "req.json", `{"tickers": []}`)

	_, err := execute(t, "", "evaluate", "--config", cfgPath, "--input", inputPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
}

func TestCheckConfig(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "engine:\n  correction:\n    min_decline_pct: 12\n")
	out, err := execute(t, "", "check-config", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "min_decline_pct: 12")

	bad := writeFile(t, "bad.yaml", "engine:\n  confidence:\n    min_confidence: 3\n")
	_, err = execute(t, "", "check-config", "--config", bad)
	assert.Error(t, err)
}
