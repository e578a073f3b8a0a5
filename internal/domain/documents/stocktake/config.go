package stocktake

import "stockledger/internal/core/numerator"

// Numbering numbers stock takes. Gaps are acceptable.
var Numbering = numerator.NewSequence(numerator.PrefixStockTake, numerator.StrategyCached)
