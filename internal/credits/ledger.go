// Package credits implements the credit ledger: per-model pricing, debits for
// model calls and the usage history behind them.
package credits

import (
	"errors"
	"fmt"
	"log"

	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

// ErrInsufficientCredits is returned when a user with an exhausted balance
// attempts a model call.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Ledger charges users for token consumption and records usage events.
type Ledger struct {
	users  *store.UserStore
	usage  *store.UsageStore
	prices map[string]float64
	// price per 1k tokens for models without an explicit entry
	defaultPrice float64
}

// NewLedger creates a ledger with the configured per-model prices.
func NewLedger(users *store.UserStore, usage *store.UsageStore, cfg types.CreditsConfig) *Ledger {
	defaultPrice := cfg.DefaultPrice
	if defaultPrice <= 0 {
		defaultPrice = 0.01
	}
	return &Ledger{
		users:        users,
		usage:        usage,
		prices:       cfg.PricePerKToken,
		defaultPrice: defaultPrice,
	}
}

// Price returns the credit cost per 1k tokens for a model.
func (l *Ledger) Price(model string) float64 {
	if p, ok := l.prices[model]; ok {
		return p
	}
	return l.defaultPrice
}

// Cost computes the credit cost of a model call.
func (l *Ledger) Cost(model string, usage types.TokenUsage) float64 {
	total := usage.PromptTokens + usage.CompletionTokens
	return float64(total) / 1000.0 * l.Price(model)
}

// Charge debits the user for a model call and records the usage event. The
// debit and the event share one cost figure so history always sums to what
// was charged. The debit deliberately skips the below-zero floor: the model
// already ran, so the final call may push the balance negative and the next
// call is refused by HasCredits.
func (l *Ledger) Charge(userID string, event *types.UsageEvent) error {
	event.UserID = userID
	event.Cost = l.Cost(event.Model, types.TokenUsage{
		PromptTokens:     event.PromptTokens,
		CompletionTokens: event.CompletionTokens,
	})

	balance, err := l.users.DebitCredits(userID, event.Cost)
	if err != nil {
		return fmt.Errorf("failed to debit credits: %w", err)
	}

	if err := l.usage.AppendUsage(event); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	if balance < 0 {
		log.Printf("credits: user %s overdrew to %.4f charging model %s", userID, balance, event.Model)
	}
	return nil
}

// Grant credits a user's balance and returns the new balance.
func (l *Ledger) Grant(userID string, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive")
	}
	return l.users.AdjustCredits(userID, amount)
}

// Balance returns a user's current credit balance.
func (l *Ledger) Balance(userID string) (float64, error) {
	user, err := l.users.GetUser(userID)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// HasCredits reports whether the user can afford any call at all.
func (l *Ledger) HasCredits(userID string) (bool, error) {
	balance, err := l.Balance(userID)
	if err != nil {
		return false, err
	}
	return balance > 0, nil
}

// History returns a user's recent usage events.
func (l *Ledger) History(userID string, limit int) ([]*types.UsageEvent, error) {
	return l.usage.ListUsage(userID, limit)
}

// Summary aggregates a user's total consumption.
func (l *Ledger) Summary(userID string) (*types.UsageSummary, error) {
	return l.usage.SummarizeUsage(userID)
}
