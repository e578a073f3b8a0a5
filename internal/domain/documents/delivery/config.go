package delivery

import (
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/types"
)

// Numbering numbers deliveries. A delivery is an accounting document.
var Numbering = numerator.NewSequence(numerator.PrefixDelivery, numerator.StrategyStrict)

// Config tunes delivery posting.
type Config struct {
	// VarianceTolerancePct is the deviation from the locked price, in percent,
	// above which a price variance NCR is raised. Zero flags any deviation.
	VarianceTolerancePct types.Money
}
