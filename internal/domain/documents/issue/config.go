package issue

import "stockledger/internal/core/numerator"

// Numbering numbers issues. High volume, gaps are acceptable.
var Numbering = numerator.NewSequence(numerator.PrefixIssue, numerator.StrategyCached)
