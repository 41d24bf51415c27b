package domain

import (
	"strings"

	"github.com/google/uuid"
)

// RateType selects how a payee's rate is interpreted.
type RateType string

const (
	// RateFlat treats the rate as an absolute amount.
	RateFlat RateType = "FlatAmount"
	// RatePercentage treats the rate as a percentage of the payee's base.
	RatePercentage RateType = "Percentage"
)

// ApplyType selects whether a payee's amount is added on top of its base
// or carved out of it.
type ApplyType string

const (
	// ApplyExclusively adds the payee amount on top, increasing the total.
	ApplyExclusively ApplyType = "ApplyExclusively"
	// ApplyInclusively carves the payee amount out of the base, leaving the
	// total unchanged.
	ApplyInclusively ApplyType = "ApplyInclusively"
)

// ReservedGroupPrefixes are group-tag prefixes only system-internal payees
// may use. User-supplied payees carrying them are rejected outright.
var ReservedGroupPrefixes = []string{"authority", "payswarm"}

// HasReservedGroupPrefix reports whether the tag starts with a reserved prefix.
func HasReservedGroupPrefix(tag string) bool {
	for _, prefix := range ReservedGroupPrefixes {
		if strings.HasPrefix(tag, prefix) {
			return true
		}
	}
	return false
}

// Payee is a declarative fee, tax, or commission rule. Resolution orders a
// set of payees by their group dependencies; distribution then converts each
// rule into a concrete Transfer.
type Payee struct {
	Destination uuid.UUID `json:"destination"`
	Currency    string    `json:"currency"`
	RateType    RateType  `json:"rateType"`
	// Rate is an absolute amount for RateFlat and a percentage (e.g. "2"
	// for 2%) for RatePercentage.
	Rate      Money     `json:"rate"`
	ApplyType ApplyType `json:"applyType"`
	// Group tags identify this payee's contribution to other payees' bases.
	Group []string `json:"payeeGroup"`
	// ApplyGroup tags select the transfers this payee's base is computed
	// over. Empty means the running transaction total.
	ApplyGroup []string `json:"payeeApplyGroup,omitempty"`
	// ApplyAfter tags force ordering after the named groups without
	// contributing to base selection.
	ApplyAfter []string `json:"payeeApplyAfter,omitempty"`
	// ExemptGroup tags exclude matching transfers from the base.
	ExemptGroup []string `json:"payeeExemptGroup,omitempty"`
	// Minimum and Maximum clamp the computed amount when present.
	Minimum *Money `json:"minimumAmount,omitempty"`
	Maximum *Money `json:"maximumAmount,omitempty"`
}

// Transfer is a single source to destination movement within a Transaction.
// A zero-amount transfer is legal and still recorded.
type Transfer struct {
	ID          uuid.UUID `json:"id"`
	Source      uuid.UUID `json:"source"`
	Destination uuid.UUID `json:"destination"`
	Amount      Money     `json:"amount"`
	Currency    string    `json:"currency"`
}
