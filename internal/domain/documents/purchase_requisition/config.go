package purchase_requisition

import "stockledger/internal/core/numerator"

// Numbering numbers requisitions. Gaps are acceptable.
var Numbering = numerator.NewSequence(numerator.PrefixRequisition, numerator.StrategyCached)
