package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"cryptocrew/internal/domain"
)

type RoomConfig struct {
	Name     string `json:"name"`
	Stations int    `json:"stations"`
}

// GameConfig is the on-disk tuning of a Sabotage match. Zero fields fall back to the
// built-in defaults when converted with Rules.
type GameConfig struct {
	TaskReward           int64        `json:"task_reward"`
	StealAmount          int64        `json:"steal_amount"`
	MineDurationSeconds  int          `json:"mine_duration_seconds"`
	StealDurationSeconds int          `json:"steal_duration_seconds"`
	MeetingWindowSeconds int          `json:"meeting_window_seconds"`
	MatchDurationSeconds int          `json:"match_duration_seconds"`
	PayoutPool           int64        `json:"payout_pool"`
	BribeTimeoutSeconds  int          `json:"bribe_timeout_seconds"`
	MaxTraitors          int          `json:"max_traitors"`
	MeetingsPerPlayer    int          `json:"meetings_per_player"`
	Rooms                []RoomConfig `json:"rooms"`

	// LedgerURL receives the payout request; empty settles through the Nakama wallet.
	LedgerURL    string `json:"ledger_url"`
	LedgerSecret string `json:"ledger_secret"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or nil if none was loaded.
func GetGameConfig() *GameConfig {
	return cfg
}

// Parse decodes a JSON game configuration.
func Parse(data []byte) (*GameConfig, error) {
	var c GameConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	for _, r := range c.Rooms {
		if r.Name == "" || r.Stations < 0 {
			return nil, fmt.Errorf("invalid room %+v", r)
		}
	}
	return &c, nil
}

// ApplyEnv overrides fields from the Nakama runtime environment. Unparseable values
// are reported and leave the field untouched.
func (c *GameConfig) ApplyEnv(env map[string]string) error {
	if v, ok := env["sabotage_ledger_url"]; ok {
		c.LedgerURL = v
	}
	if v, ok := env["sabotage_ledger_secret"]; ok {
		c.LedgerSecret = v
	}
	if v, ok := env["sabotage_match_duration_sec"]; ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("sabotage_match_duration_sec: %w", err)
		}
		c.MatchDurationSeconds = i
	}
	if v, ok := env["sabotage_payout_pool"]; ok {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("sabotage_payout_pool: %w", err)
		}
		c.PayoutPool = i
	}
	return nil
}

// Rules converts the configuration to domain rules. A nil config yields the defaults.
func (c *GameConfig) Rules() domain.Rules {
	r := domain.DefaultRules()
	if c == nil {
		return r
	}
	if c.TaskReward > 0 {
		r.TaskReward = c.TaskReward
	}
	if c.StealAmount > 0 {
		r.StealAmount = c.StealAmount
	}
	setSeconds(&r.MineDuration, c.MineDurationSeconds)
	setSeconds(&r.StealDuration, c.StealDurationSeconds)
	setSeconds(&r.MeetingWindow, c.MeetingWindowSeconds)
	setSeconds(&r.MatchDuration, c.MatchDurationSeconds)
	setSeconds(&r.BribeTimeout, c.BribeTimeoutSeconds)
	if c.PayoutPool > 0 {
		r.PayoutPool = c.PayoutPool
	}
	if c.MaxTraitors > 0 {
		r.MaxTraitors = c.MaxTraitors
	}
	if c.MeetingsPerPlayer > 0 {
		r.MeetingsPerPlayer = c.MeetingsPerPlayer
	}
	if len(c.Rooms) > 0 {
		r.Rooms = make([]domain.RoomSpec, 0, len(c.Rooms))
		for _, room := range c.Rooms {
			r.Rooms = append(r.Rooms, domain.RoomSpec{Name: room.Name, Stations: room.Stations})
		}
	}
	return r
}

func setSeconds(d *time.Duration, seconds int) {
	if seconds > 0 {
		*d = time.Duration(seconds) * time.Second
	}
}
