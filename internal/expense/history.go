package expense

import (
	"context"

	"github.com/truckops/truckops/internal/balance"
)

// historySource lets the balance ledger read expenses without importing this package.
type historySource struct {
	repo Repository
}

// NewHistorySource adapts the expense repository to balance.ExpenseHistory.
func NewHistorySource(repo Repository) balance.ExpenseHistory {
	return historySource{repo: repo}
}

func (h historySource) HistoryForStaff(ctx context.Context, shortName string) ([]balance.HistoryItem, error) {
	items, err := h.repo.List(ctx, Filter{StaffShortName: shortName})
	if err != nil {
		return nil, err
	}
	return toHistory(items), nil
}

func (h historySource) History(ctx context.Context) ([]balance.HistoryItem, error) {
	items, err := h.repo.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	return toHistory(items), nil
}

func toHistory(items []Expense) []balance.HistoryItem {
	out := make([]balance.HistoryItem, 0, len(items))
	for _, e := range items {
		out = append(out, balance.HistoryItem{
			ExpenseID:      e.ID,
			StaffShortName: e.StaffShortName,
			Amount:         e.Amount,
			Reason:         e.Reason,
			Description:    e.Description,
			Date:           e.Date,
			TripID:         e.TripID,
			BalanceUpdated: e.BalanceUpdated,
		})
	}
	return out
}
