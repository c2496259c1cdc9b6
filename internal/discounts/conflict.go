package discounts

import (
	"github.com/shopspring/decimal"

	"github.com/nmoreyra/tienda-backend/pkg/db/models"
)

// Winner picks the discount that applies when several cover the same
// product: the highest percentage wins, ties go to the most recently
// created row, and identical timestamps fall back to the larger id so the
// choice is deterministic. Returns nil for an empty set.
func Winner(applicable []models.Discount) *models.Discount {
	var winner *models.Discount
	for i := range applicable {
		candidate := &applicable[i]
		if winner == nil {
			winner = candidate
			continue
		}
		switch {
		case candidate.Percentage.GreaterThan(winner.Percentage):
			winner = candidate
		case candidate.Percentage.Equal(winner.Percentage):
			if candidate.CreatedAt.After(winner.CreatedAt) {
				winner = candidate
			} else if candidate.CreatedAt.Equal(winner.CreatedAt) && candidate.ID.String() > winner.ID.String() {
				winner = candidate
			}
		}
	}
	return winner
}

// EffectivePercentage returns the winning percentage, or zero when nothing
// applies.
func EffectivePercentage(applicable []models.Discount) decimal.Decimal {
	winner := Winner(applicable)
	if winner == nil {
		return decimal.Zero
	}
	return winner.Percentage
}
