// Package payee converts declarative fee, tax, and commission rules into a
// balanced set of ledger transfers. Resolution validates the rules and
// orders them by group dependency; distribution applies each rule in that
// order.
package payee

import (
	"fmt"

	"github.com/ayo6706/payment-ledger/internal/domain"
)

type resolveOptions struct {
	allowReserved bool
}

// ResolveOption customizes payee resolution.
type ResolveOption func(*resolveOptions)

// AllowReserved permits group tags with reserved prefixes. Only
// system-internal payees (gateway fee rules) resolve with this option;
// user-supplied input never does.
func AllowReserved() ResolveOption {
	return func(o *resolveOptions) {
		o.allowReserved = true
	}
}

// Resolve validates the payees and returns them in dependency order: a payee
// sorts after every payee emitting a tag it references through ApplyGroup or
// ApplyAfter. Ties keep input order. A dependency cycle fails the whole set
// with ErrInvalidPayeeDependency and no partial result.
func Resolve(payees []domain.Payee, opts ...ResolveOption) ([]domain.Payee, error) {
	var options resolveOptions
	for _, opt := range opts {
		opt(&options)
	}

	for i := range payees {
		if err := validate(i, &payees[i], options); err != nil {
			return nil, err
		}
	}

	n := len(payees)

	// Tag -> indices of payees emitting it.
	emitters := make(map[string][]int, n)
	for i := range payees {
		for _, tag := range dedupe(payees[i].Group) {
			emitters[tag] = append(emitters[tag], i)
		}
	}

	// Edge from each emitter of a referenced tag to the referencing payee.
	// A tag nobody emits contributes no edge: the payee simply computes a
	// zero base for it.
	adjacent := make([][]int, n)
	indegree := make([]int, n)
	seen := make(map[[2]int]struct{})
	for i := range payees {
		refs := append(append([]string{}, payees[i].ApplyGroup...), payees[i].ApplyAfter...)
		for _, tag := range dedupe(refs) {
			for _, j := range emitters[tag] {
				edge := [2]int{j, i}
				if _, dup := seen[edge]; dup {
					continue
				}
				seen[edge] = struct{}{}
				adjacent[j] = append(adjacent[j], i)
				indegree[i]++
			}
		}
	}

	// Kahn's algorithm, always picking the lowest-index ready payee so the
	// ordering is stable with respect to input order.
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]domain.Payee, 0, n)
	for len(ready) > 0 {
		lowest := 0
		for k := 1; k < len(ready); k++ {
			if ready[k] < ready[lowest] {
				lowest = k
			}
		}
		i := ready[lowest]
		ready = append(ready[:lowest], ready[lowest+1:]...)

		ordered = append(ordered, payees[i])
		for _, next := range adjacent[i] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(ordered) < n {
		for i := 0; i < n; i++ {
			if indegree[i] > 0 {
				return nil, domain.NewPayeeError(domain.ErrInvalidPayeeDependency, i, "payeeApplyGroup",
					"payee depends on a group it emits, directly or transitively")
			}
		}
	}

	return ordered, nil
}

func validate(index int, p *domain.Payee, options resolveOptions) error {
	switch p.RateType {
	case domain.RateFlat, domain.RatePercentage:
	default:
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "rateType",
			fmt.Sprintf("unknown rate type %q", p.RateType))
	}

	switch p.ApplyType {
	case domain.ApplyExclusively, domain.ApplyInclusively:
	default:
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "applyType",
			fmt.Sprintf("unknown apply type %q", p.ApplyType))
	}

	if len(p.Group) == 0 {
		return domain.NewPayeeError(domain.ErrInvalidPayeeGroup, index, "payeeGroup", "at least one group tag is required")
	}
	for _, tag := range p.Group {
		if tag == "" {
			return domain.NewPayeeError(domain.ErrInvalidPayeeGroup, index, "payeeGroup", "empty group tag")
		}
		if !options.allowReserved && domain.HasReservedGroupPrefix(tag) {
			return domain.NewPayeeError(domain.ErrInvalidPayeeGroup, index, "payeeGroup",
				fmt.Sprintf("group tag %q uses a reserved prefix", tag))
		}
	}

	if p.Rate.IsNegative() {
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "rate", "rate must not be negative")
	}
	if p.RateType == domain.RatePercentage && p.ApplyType == domain.ApplyInclusively && p.Rate.Cmp(hundred) > 0 {
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "rate",
			"inclusive percentage must not exceed 100")
	}

	if p.Minimum != nil && p.Minimum.IsNegative() {
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "minimumAmount", "minimum must not be negative")
	}
	if p.Maximum != nil && p.Maximum.IsNegative() {
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "maximumAmount", "maximum must not be negative")
	}
	if p.Minimum != nil && p.Maximum != nil && p.Minimum.Cmp(*p.Maximum) > 0 {
		return domain.NewPayeeError(domain.ErrInvalidPayee, index, "minimumAmount", "minimum exceeds maximum")
	}

	return nil
}

// dedupe removes duplicate tags preserving first occurrence order, so
// ['g1','g1'] and ['g1'] build identical dependency edges.
func dedupe(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
