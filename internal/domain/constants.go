package domain

// Well-known account IDs seeded by migration 000001. ExternalAccountID is
// the counterparty for gateway-facing transfers; RoundingAccountID absorbs
// precision-adjustment transfers when a gateway supports fewer fractional
// digits than the ledger.
const (
	SystemOwnerID     = "11111111-1111-1111-1111-111111111111"
	ExternalAccountID = "22222222-2222-2222-2222-222222222222"
	RoundingAccountID = "33333333-3333-3333-3333-333333333333"
	FeesAccountID     = "44444444-4444-4444-4444-444444444444"
)
