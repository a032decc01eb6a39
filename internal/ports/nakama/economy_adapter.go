package nakama

import (
	"context"
	"fmt"

	"cryptocrew/internal/domain"
)

// walletCurrency is the wallet key match payouts are credited to.
const walletCurrency = "gc"

// walletUpdater is the slice of runtime.NakamaModule the payout sink needs.
type walletUpdater interface {
	WalletUpdate(ctx context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, updateLedger bool) (map[string]int64, map[string]int64, error)
}

// WalletPayoutSink implements ports.PayoutSink by crediting Nakama wallets directly.
// It is used when no external ledger is configured.
type WalletPayoutSink struct {
	nk    walletUpdater
	isBot func(userID string) bool
}

// NewWalletPayoutSink creates a payout sink. isBot may be nil.
func NewWalletPayoutSink(nk walletUpdater, isBot func(string) bool) *WalletPayoutSink {
	return &WalletPayoutSink{
		nk:    nk,
		isBot: isBot,
	}
}

// SubmitPayout credits every human winner. Wallet ledger entries carry the game id.
func (a *WalletPayoutSink) SubmitPayout(ctx context.Context, settlement domain.Settlement) error {
	for _, entry := range settlement.Players {
		if entry.GCAwarded == 0 {
			continue
		}
		if a.isBot != nil && a.isBot(entry.ID) {
			continue
		}

		changes := map[string]int64{
			walletCurrency: entry.GCAwarded,
		}
		metadata := map[string]interface{}{
			"game_id": settlement.GameID,
			"role":    string(entry.Role),
			"outcome": string(entry.Outcome),
			"reason":  "sabotage_payout",
		}

		_, _, err := a.nk.WalletUpdate(ctx, entry.ID, changes, metadata, true)
		if err != nil {
			return fmt.Errorf("failed to update wallet for user %s: %w", entry.ID, err)
		}
	}
	return nil
}
