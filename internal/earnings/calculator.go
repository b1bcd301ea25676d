package earnings

import (
	"github.com/jetfund/jetfund-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// RatePerHour is the stipend paid per reviewed hour, in USD.
var RatePerHour = decimal.NewFromInt(5)

// Earnings are the approved and pending stipend totals in USD.
type Earnings struct {
	Approved decimal.Decimal
	Pending  decimal.Decimal
}

// Compute applies the rate to the project rollups. Spent money is only
// taken out of the approved total, which never drops below zero.
func Compute(projects []models.Project, spent decimal.Decimal) Earnings {
	approvedHours := decimal.Zero
	pendingHours := decimal.Zero
	for _, p := range projects {
		approvedHours = approvedHours.Add(decimal.NewFromFloat(p.Rollup.ApprovedHours))
		pendingHours = pendingHours.Add(decimal.NewFromFloat(p.Rollup.PendingHours))
	}

	approved := approvedHours.Mul(RatePerHour).Sub(spent)
	if approved.IsNegative() {
		approved = decimal.Zero
	}
	return Earnings{
		Approved: approved.Round(2),
		Pending:  pendingHours.Mul(RatePerHour).Round(2),
	}
}
