package payee

import (
	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
)

var hundred = domain.MustMoney("100")

// Distribution is the result of applying an ordered payee list: the
// transfers in application order and the transaction total attributable to
// the external side.
type Distribution struct {
	Transfers []domain.Transfer
	Total     domain.Money
}

// transferMeta tracks the group bookkeeping behind each produced transfer.
// originGroups are the emitting payee's tags. For inclusive carve-outs,
// carvedGroups records the groups of the base the amount was carved from:
// a carve-out keeps counting toward that base's total for later payees
// (the base total is conserved), it just can no longer be reduced through
// those tags.
type transferMeta struct {
	originGroups []string
	carvedGroups []string
	carve        bool
}

// Distribute applies each payee in resolver order against the root amount,
// producing one transfer per payee. Exclusive amounts increase the running
// total; inclusive amounts are carved proportionally out of their base's
// existing transfers, leaving the total unchanged. Any failure returns a nil
// distribution: no partial transfer list escapes.
func Distribute(root domain.Money, source uuid.UUID, ordered []domain.Payee) (*Distribution, error) {
	total := root
	transfers := make([]domain.Transfer, 0, len(ordered))
	metas := make([]transferMeta, 0, len(ordered))

	for i := range ordered {
		p := &ordered[i]

		baseTotal, headroom, members, baseGroups := computeBase(p, total, transfers, metas)

		amount, err := payeeAmount(i, p, baseTotal)
		if err != nil {
			return nil, err
		}

		if p.ApplyType == domain.ApplyInclusively {
			if err := carveFromBase(i, amount, baseTotal, headroom, members, transfers); err != nil {
				return nil, err
			}
		} else {
			total = total.Add(amount)
		}

		transfers = append(transfers, domain.Transfer{
			ID:          uuid.New(),
			Source:      source,
			Destination: p.Destination,
			Amount:      amount,
			Currency:    p.Currency,
		})
		meta := transferMeta{originGroups: p.Group}
		if p.ApplyType == domain.ApplyInclusively {
			meta.carve = true
			meta.carvedGroups = baseGroups
		}
		metas = append(metas, meta)
	}

	return &Distribution{Transfers: transfers, Total: total}, nil
}

// computeBase returns the payee's base total, the root headroom behind it,
// the indices of transfers the base can be carved from, and the union of
// group tags behind the base. Headroom is nonzero only for a running-total
// base: it is the portion of the base held by the root amount rather than
// by any transfer.
func computeBase(p *domain.Payee, total domain.Money, transfers []domain.Transfer, metas []transferMeta) (domain.Money, domain.Money, []int, []string) {
	apply := dedupe(p.ApplyGroup)
	exempt := dedupe(p.ExemptGroup)

	var members []int
	var baseGroups []string

	if len(apply) == 0 {
		// No apply group: the base is the running transaction total, less
		// any exempted contributions.
		baseTotal := total
		memberSum := domain.Zero
		for idx := range transfers {
			if intersects(metas[idx].originGroups, exempt) {
				baseTotal = baseTotal.Sub(transfers[idx].Amount)
				continue
			}
			members = append(members, idx)
			memberSum = memberSum.Add(transfers[idx].Amount)
			baseGroups = appendTags(baseGroups, metas[idx].originGroups)
		}
		return baseTotal, baseTotal.Sub(memberSum), members, baseGroups
	}

	baseTotal := domain.Zero
	for idx := range transfers {
		meta := &metas[idx]
		switch {
		case intersects(meta.originGroups, apply) && !intersects(meta.originGroups, exempt):
			baseTotal = baseTotal.Add(transfers[idx].Amount)
			members = append(members, idx)
			baseGroups = appendTags(baseGroups, meta.originGroups)
		case meta.carve && intersects(meta.carvedGroups, apply) && !intersects(meta.carvedGroups, exempt):
			// A prior carve-out from this base still counts toward its
			// total but is not itself reducible here.
			baseTotal = baseTotal.Add(transfers[idx].Amount)
			baseGroups = appendTags(baseGroups, meta.carvedGroups)
		}
	}
	return baseTotal, domain.Zero, members, baseGroups
}

// payeeAmount computes the raw rule amount and clamps it.
func payeeAmount(index int, p *domain.Payee, baseTotal domain.Money) (domain.Money, error) {
	var amount domain.Money
	switch p.RateType {
	case domain.RateFlat:
		amount = p.Rate
	case domain.RatePercentage:
		var err error
		amount, err = baseTotal.Mul(p.Rate).Div(hundred)
		if err != nil {
			return domain.Zero, err
		}
	}

	// An apply group matching no payee contributes a zero base: the rule
	// yields a zero transfer rather than an error, and there is nothing to
	// carve or clamp.
	if p.ApplyType == domain.ApplyInclusively && baseTotal.IsZero() {
		return domain.Zero, nil
	}

	if p.Minimum != nil && amount.Cmp(*p.Minimum) < 0 {
		amount = *p.Minimum
	}
	if p.Maximum != nil && amount.Cmp(*p.Maximum) > 0 {
		amount = *p.Maximum
	}

	if p.ApplyType == domain.ApplyInclusively && amount.Cmp(baseTotal) > 0 {
		return domain.Zero, domain.NewPayeeError(domain.ErrInvalidPayee, index, "rate",
			"inclusive amount exceeds its base")
	}
	return amount, nil
}

// carveFromBase reduces each base member in proportion to its current share
// of the base, so that the carved amount plus the post-carve base total
// equals the pre-carve base total exactly. On a running-total base the root
// headroom is an implicit final contributor and absorbs the remainder; with
// no headroom the final member absorbs it instead.
func carveFromBase(index int, amount, baseTotal, headroom domain.Money, members []int, transfers []domain.Transfer) error {
	if amount.IsZero() {
		return nil
	}

	remaining := amount
	for k, idx := range members {
		var reduction domain.Money
		if headroom.IsZero() && k == len(members)-1 {
			reduction = remaining
		} else {
			var err error
			reduction, err = transfers[idx].Amount.Mul(amount).Div(baseTotal)
			if err != nil {
				return err
			}
		}

		next := transfers[idx].Amount.Sub(reduction)
		if next.IsNegative() {
			return domain.NewPayeeError(domain.ErrInvalidPayee, index, "rate",
				"inclusive carve drives a base contributor negative")
		}
		transfers[idx].Amount = next
		remaining = remaining.Sub(reduction)
	}

	if remaining.Cmp(headroom) > 0 {
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "rate",
			"inclusive carve drives a base contributor negative")
	}
	return nil
}

func intersects(tags, others []string) bool {
	for _, tag := range tags {
		for _, other := range others {
			if tag == other {
				return true
			}
		}
	}
	return false
}

func appendTags(dst, src []string) []string {
	for _, tag := range src {
		dup := false
		for _, have := range dst {
			if have == tag {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, tag)
		}
	}
	return dst
}
