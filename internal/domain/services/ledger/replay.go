package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// ReplayPositions folds an ordered transaction list into net signed quantity
// per ticker. BUY and DEPOSIT add quantity, SELL and WITHDRAWAL subtract it.
//
// Callers must pass transactions already filtered to the as-of window and
// sorted ascending by (transaction_date, created_at, id); the repository's
// ORDER BY is the single place that ordering is encoded.
//
// Intermediate quantities may go negative and must not be clamped: the
// SELL-CASH leg of a BUY can sort before the DEPOSIT that funds it when both
// carry the same date. Only the final value is meaningful.
func ReplayPositions(txns []entities.Transaction) map[string]decimal.Decimal {
	positions := make(map[string]decimal.Decimal)

	for i := range txns {
		t := &txns[i]
		switch t.Type {
		case entities.TransactionTypeBuy, entities.TransactionTypeDeposit:
			positions[t.Ticker] = positions[t.Ticker].Add(t.Quantity)
		case entities.TransactionTypeSell, entities.TransactionTypeWithdrawal:
			positions[t.Ticker] = positions[t.Ticker].Sub(t.Quantity)
		}
	}

	return positions
}

// CostBasisPosition is the replayed state of one ticker with its
// quantity-weighted average cost.
type CostBasisPosition struct {
	Ticker       string
	Quantity     decimal.Decimal
	AvgCostBasis decimal.Decimal
}

type runningLot struct {
	quantity  decimal.Decimal
	totalCost decimal.Decimal
}

// ReplayPositionsWithCostBasis folds the ledger into per-ticker quantity and
// weighted-average cost. Additions grow quantity and total cost by qty*price;
// reductions shrink quantity while holding the average constant.
//
// When a reduction hits a ticker whose running quantity is not positive (the
// early CASH SELL case above) there is no valid average to preserve, so both
// quantity and qty*price are subtracted from the running totals directly.
//
// Tickers whose final quantity is not positive are excluded from the result.
func ReplayPositionsWithCostBasis(txns []entities.Transaction) map[string]CostBasisPosition {
	lots := make(map[string]*runningLot)

	for i := range txns {
		t := &txns[i]
		lot, ok := lots[t.Ticker]
		if !ok {
			lot = &runningLot{}
			lots[t.Ticker] = lot
		}

		switch t.Type {
		case entities.TransactionTypeBuy, entities.TransactionTypeDeposit:
			lot.quantity = lot.quantity.Add(t.Quantity)
			lot.totalCost = lot.totalCost.Add(t.GrossAmount())
		case entities.TransactionTypeSell, entities.TransactionTypeWithdrawal:
			if lot.quantity.Sign() <= 0 {
				lot.quantity = lot.quantity.Sub(t.Quantity)
				lot.totalCost = lot.totalCost.Sub(t.GrossAmount())
				continue
			}
			avg := lot.totalCost.Div(lot.quantity)
			lot.quantity = lot.quantity.Sub(t.Quantity)
			lot.totalCost = lot.quantity.Mul(avg)
		}
	}

	out := make(map[string]CostBasisPosition, len(lots))
	for ticker, lot := range lots {
		if lot.quantity.Sign() <= 0 {
			continue
		}
		out[ticker] = CostBasisPosition{
			Ticker:       ticker,
			Quantity:     lot.quantity,
			AvgCostBasis: lot.totalCost.Div(lot.quantity),
		}
	}

	return out
}
