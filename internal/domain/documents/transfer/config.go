package transfer

import "stockledger/internal/core/numerator"

// Numbering numbers transfers.
var Numbering = numerator.NewSequence(numerator.PrefixTransfer, numerator.StrategyStrict)
