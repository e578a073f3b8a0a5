package purchase_order

import "stockledger/internal/core/numerator"

// Numbering numbers purchase orders. Supplier-facing numbers must not have gaps.
var Numbering = numerator.NewSequence(numerator.PrefixPurchaseOrder, numerator.StrategyStrict)
