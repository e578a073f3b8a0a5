package ncr

import "stockledger/internal/core/numerator"

// Numbering numbers NCRs. Gaps are acceptable.
var Numbering = numerator.NewSequence(numerator.PrefixNonConformance, numerator.StrategyCached)
