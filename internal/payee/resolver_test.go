package payee

import (
	"testing"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatPayee(rate string, groups ...string) domain.Payee {
	return domain.Payee{
		Destination: uuid.New(),
		Currency:    "USD",
		RateType:    domain.RateFlat,
		Rate:        domain.MustMoney(rate),
		ApplyType:   domain.ApplyExclusively,
		Group:       groups,
	}
}

func percentPayee(rate string, apply domain.ApplyType, applyGroup []string, groups ...string) domain.Payee {
	return domain.Payee{
		Destination: uuid.New(),
		Currency:    "USD",
		RateType:    domain.RatePercentage,
		Rate:        domain.MustMoney(rate),
		ApplyType:   apply,
		Group:       groups,
		ApplyGroup:  applyGroup,
	}
}

func TestResolve_OrdersByApplyGroup(t *testing.T) {
	fee := percentPayee("2", domain.ApplyExclusively, []string{"vendor"}, "fees")
	vendor := flatPayee("1.00", "vendor")

	// The fee references the vendor group, so the vendor payee must come
	// first even though it is listed second.
	ordered, err := Resolve([]domain.Payee{fee, vendor})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, vendor.Destination, ordered[0].Destination)
	assert.Equal(t, fee.Destination, ordered[1].Destination)
}

func TestResolve_KeepsInputOrderForIndependentPayees(t *testing.T) {
	a := flatPayee("1.00", "a")
	b := flatPayee("2.00", "b")
	c := flatPayee("3.00", "c")

	ordered, err := Resolve([]domain.Payee{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, a.Destination, ordered[0].Destination)
	assert.Equal(t, b.Destination, ordered[1].Destination)
	assert.Equal(t, c.Destination, ordered[2].Destination)
}

func TestResolve_ApplyAfterOrdersWithoutBase(t *testing.T) {
	second := flatPayee("1.00", "late")
	second.ApplyAfter = []string{"early"}
	first := flatPayee("1.00", "early")

	ordered, err := Resolve([]domain.Payee{second, first})
	require.NoError(t, err)
	assert.Equal(t, first.Destination, ordered[0].Destination)
	assert.Equal(t, second.Destination, ordered[1].Destination)
}

func TestResolve_CycleFails(t *testing.T) {
	a := percentPayee("10", domain.ApplyExclusively, []string{"b"}, "a")
	b := percentPayee("10", domain.ApplyExclusively, []string{"a"}, "b")

	ordered, err := Resolve([]domain.Payee{a, b})
	assert.Nil(t, ordered)
	assert.ErrorIs(t, err, domain.ErrInvalidPayeeDependency)
}

func TestResolve_SelfDependencyFails(t *testing.T) {
	p := percentPayee("10", domain.ApplyExclusively, []string{"self"}, "self")

	ordered, err := Resolve([]domain.Payee{p})
	assert.Nil(t, ordered)
	assert.ErrorIs(t, err, domain.ErrInvalidPayeeDependency)
}

func TestResolve_DuplicateApplyTagsAreDeduplicated(t *testing.T) {
	vendor := flatPayee("1.00", "g1")
	dup := percentPayee("2", domain.ApplyInclusively, []string{"g1", "g1"}, "fees")
	single := dup
	single.ApplyGroup = []string{"g1"}

	fromDup, err := Resolve([]domain.Payee{vendor, dup})
	require.NoError(t, err)
	fromSingle, err := Resolve([]domain.Payee{vendor, single})
	require.NoError(t, err)

	require.Len(t, fromDup, 2)
	require.Len(t, fromSingle, 2)
	assert.Equal(t, fromSingle[0].Destination, fromDup[0].Destination)
	assert.Equal(t, fromSingle[1].Destination, fromDup[1].Destination)
}

func TestResolve_UnknownApplyGroupIsNotAnError(t *testing.T) {
	p := percentPayee("2", domain.ApplyExclusively, []string{"nobody-emits-this"}, "fees")

	ordered, err := Resolve([]domain.Payee{p})
	require.NoError(t, err)
	assert.Len(t, ordered, 1)
}

func TestResolve_Validation(t *testing.T) {
	min := domain.MustMoney("5.00")
	max := domain.MustMoney("1.00")
	negative := domain.MustMoney("-1")

	cases := []struct {
		name     string
		mutate   func(*domain.Payee)
		sentinel error
	}{
		{"missing rate type", func(p *domain.Payee) { p.RateType = "" }, domain.ErrInvalidPayee},
		{"missing apply type", func(p *domain.Payee) { p.ApplyType = "" }, domain.ErrInvalidPayee},
		{"empty group", func(p *domain.Payee) { p.Group = nil }, domain.ErrInvalidPayeeGroup},
		{"blank group tag", func(p *domain.Payee) { p.Group = []string{""} }, domain.ErrInvalidPayeeGroup},
		{"reserved authority prefix", func(p *domain.Payee) { p.Group = []string{"authorityFee"} }, domain.ErrInvalidPayeeGroup},
		{"reserved payswarm prefix", func(p *domain.Payee) { p.Group = []string{"payswarmTax"} }, domain.ErrInvalidPayeeGroup},
		{"negative rate", func(p *domain.Payee) { p.Rate = negative }, domain.ErrInvalidPayee},
		{"negative minimum", func(p *domain.Payee) { p.Minimum = &negative }, domain.ErrInvalidPayee},
		{"minimum above maximum", func(p *domain.Payee) { p.Minimum = &min; p.Maximum = &max }, domain.ErrInvalidPayee},
		{"inclusive percentage above 100", func(p *domain.Payee) {
			p.RateType = domain.RatePercentage
			p.ApplyType = domain.ApplyInclusively
			p.Rate = domain.MustMoney("101")
		}, domain.ErrInvalidPayee},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := flatPayee("1.00", "g1")
			tc.mutate(&p)

			ordered, err := Resolve([]domain.Payee{p})
			assert.Nil(t, ordered)
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestResolve_AllowReservedPermitsSystemGroups(t *testing.T) {
	p := flatPayee("0.30", "authorityGatewayFee")

	_, err := Resolve([]domain.Payee{p})
	require.ErrorIs(t, err, domain.ErrInvalidPayeeGroup)

	ordered, err := Resolve([]domain.Payee{p}, AllowReserved())
	require.NoError(t, err)
	assert.Len(t, ordered, 1)
}
