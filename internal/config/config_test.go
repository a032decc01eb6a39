package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cryptocrew/internal/domain"
)

func TestShippedConfigMatchesDefaults(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "data", "game_config.json"))
	require.NoError(t, err)

	c, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRules(), c.Rules())
}

func TestRulesFallsBackPerField(t *testing.T) {
	c, err := Parse([]byte(`{"steal_amount": 300, "match_duration_seconds": 600, "rooms": [{"name": "pit", "stations": 4}]}`))
	require.NoError(t, err)

	r := c.Rules()
	require.Equal(t, int64(300), r.StealAmount)
	require.Equal(t, 600*time.Second, r.MatchDuration)
	require.Equal(t, []domain.RoomSpec{{Name: "pit", Stations: 4}}, r.Rooms)
	require.Equal(t, int64(134), r.TaskReward)
	require.Equal(t, 60*time.Second, r.MineDuration)
	require.Equal(t, int64(8000), r.PayoutPool)

	var nilConfig *GameConfig
	require.Equal(t, domain.DefaultRules(), nilConfig.Rules())
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte(`{"rooms": [{"name": "", "stations": 1}]}`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"payout_pool": "lots"}`))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	c := &GameConfig{PayoutPool: 8000}
	require.NoError(t, c.ApplyEnv(map[string]string{
		"sabotage_ledger_url":         "https://ledger.example/payouts",
		"sabotage_ledger_secret":      "s3cret",
		"sabotage_match_duration_sec": "300",
		"sabotage_payout_pool":        "9000",
	}))
	require.Equal(t, "https://ledger.example/payouts", c.LedgerURL)
	require.Equal(t, "s3cret", c.LedgerSecret)
	require.Equal(t, 300*time.Second, c.Rules().MatchDuration)
	require.Equal(t, int64(9000), c.Rules().PayoutPool)

	require.Error(t, c.ApplyEnv(map[string]string{"sabotage_payout_pool": "many"}))
	require.Equal(t, int64(9000), c.PayoutPool)
}
