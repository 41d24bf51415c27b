package payee

import (
	"testing"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(d *Distribution) []string {
	out := make([]string, len(d.Transfers))
	for i, tr := range d.Transfers {
		out[i] = tr.Amount.String()
	}
	return out
}

func distribute(t *testing.T, payees []domain.Payee) *Distribution {
	t.Helper()
	ordered, err := Resolve(payees)
	require.NoError(t, err)
	dist, err := Distribute(domain.Zero, uuid.New(), ordered)
	require.NoError(t, err)
	return dist
}

func TestDistribute_NoPayees(t *testing.T) {
	dist, err := Distribute(domain.Zero, uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, dist.Transfers)
	assert.True(t, dist.Total.IsZero())
}

func TestDistribute_SingleFlatExclusive(t *testing.T) {
	dist := distribute(t, []domain.Payee{flatPayee("1.00", "vendor")})

	assert.Equal(t, "1", dist.Total.String())
	assert.Equal(t, []string{"1"}, amounts(dist))
}

func TestDistribute_ExclusivePercentageOnFlatBase(t *testing.T) {
	dist := distribute(t, []domain.Payee{
		flatPayee("1.00", "vendor"),
		percentPayee("2", domain.ApplyExclusively, []string{"vendor"}, "fees"),
	})

	assert.Equal(t, "1.02", dist.Total.String())
	assert.Equal(t, []string{"1", "0.02"}, amounts(dist))
}

func TestDistribute_InclusivePercentageOnFlatBase(t *testing.T) {
	dist := distribute(t, []domain.Payee{
		flatPayee("1.00", "vendor"),
		percentPayee("2", domain.ApplyInclusively, []string{"vendor"}, "fees"),
	})

	assert.Equal(t, "1", dist.Total.String())
	assert.Equal(t, []string{"0.98", "0.02"}, amounts(dist))
}

func TestDistribute_ThreeInclusivePercentagesShareOneBase(t *testing.T) {
	// Each fee sees the full conserved 3.00 base: prior carve-outs keep
	// counting toward the base total even though the vendor transfer has
	// already been reduced.
	dist := distribute(t, []domain.Payee{
		flatPayee("3.00", "vendor"),
		percentPayee("33", domain.ApplyInclusively, []string{"vendor"}, "fee1"),
		percentPayee("33", domain.ApplyInclusively, []string{"vendor"}, "fee2"),
		percentPayee("33", domain.ApplyInclusively, []string{"vendor"}, "fee3"),
	})

	assert.Equal(t, "3", dist.Total.String())
	assert.Equal(t, []string{"0.03", "0.99", "0.99", "0.99"}, amounts(dist))
}

func TestDistribute_InclusiveFlatCarveAcrossUnevenBase(t *testing.T) {
	carve := domain.Payee{
		Destination: uuid.New(),
		Currency:    "USD",
		RateType:    domain.RateFlat,
		Rate:        domain.MustMoney("0.99"),
		ApplyType:   domain.ApplyInclusively,
		Group:       []string{"fees"},
		ApplyGroup:  []string{"split"},
	}
	dist := distribute(t, []domain.Payee{
		flatPayee("0.33", "split"),
		flatPayee("0.34", "split"),
		flatPayee("0.33", "split"),
		carve,
	})

	assert.Equal(t, "1", dist.Total.String())
	assert.Equal(t, []string{"0.0033", "0.0034", "0.0033", "0.99"}, amounts(dist))
}

func TestDistribute_ExclusiveAdditivity(t *testing.T) {
	base := []domain.Payee{flatPayee("5.00", "vendor")}
	before := distribute(t, base)

	fee := percentPayee("10", domain.ApplyExclusively, []string{"vendor"}, "fees")
	after := distribute(t, append(base, fee))

	// Adding an exclusive payee increases the total by exactly its amount.
	added := after.Total.Sub(before.Total)
	assert.Equal(t, "0.5", added.String())
	assert.Equal(t, "0.5", after.Transfers[len(after.Transfers)-1].Amount.String())
}

func TestDistribute_InclusiveConservation(t *testing.T) {
	dist := distribute(t, []domain.Payee{
		flatPayee("2.00", "vendor"),
		flatPayee("1.00", "vendor"),
		percentPayee("7", domain.ApplyInclusively, []string{"vendor"}, "fees"),
	})

	assert.Equal(t, "3", dist.Total.String())

	carve := dist.Transfers[2].Amount
	postBase := dist.Transfers[0].Amount.Add(dist.Transfers[1].Amount)
	assert.Equal(t, "0.21", carve.String())
	assert.True(t, carve.Add(postBase).Equal(domain.MustMoney("3.00")),
		"carve amount plus post-carve base must equal pre-carve base")
}

func TestDistribute_DuplicateApplyTagsYieldIdenticalResult(t *testing.T) {
	build := func(applyGroup []string) []domain.Payee {
		vendor := flatPayee("1.00", "g1")
		vendor.Destination = uuid.MustParse("a8098c1a-f86e-11da-bd1a-00112444be1e")
		fee := percentPayee("2", domain.ApplyInclusively, applyGroup, "fees")
		fee.Destination = uuid.MustParse("b8098c1a-f86e-11da-bd1a-00112444be1e")
		return []domain.Payee{vendor, fee}
	}

	dup := distribute(t, build([]string{"g1", "g1"}))
	single := distribute(t, build([]string{"g1"}))

	assert.Equal(t, amounts(single), amounts(dup))
	assert.True(t, single.Total.Equal(dup.Total))
}

func TestDistribute_ClampsToMinimumAndMaximum(t *testing.T) {
	min := domain.MustMoney("0.30")
	max := domain.MustMoney("0.50")

	capped := percentPayee("90", domain.ApplyExclusively, []string{"vendor"}, "bigfee")
	capped.Maximum = &max
	floored := percentPayee("1", domain.ApplyExclusively, []string{"vendor"}, "smallfee")
	floored.Minimum = &min

	dist := distribute(t, []domain.Payee{
		flatPayee("10.00", "vendor"),
		capped,
		floored,
	})

	assert.Equal(t, []string{"10", "0.5", "0.3"}, amounts(dist))
	assert.Equal(t, "10.8", dist.Total.String())
}

func TestDistribute_ZeroAmountTransferIsRecorded(t *testing.T) {
	dist := distribute(t, []domain.Payee{
		flatPayee("1.00", "vendor"),
		flatPayee("0", "freebie"),
	})

	require.Len(t, dist.Transfers, 2)
	assert.True(t, dist.Transfers[1].Amount.IsZero())
	assert.Equal(t, "1", dist.Total.String())
}

func TestDistribute_UnknownApplyGroupContributesZeroBase(t *testing.T) {
	dist := distribute(t, []domain.Payee{
		flatPayee("1.00", "vendor"),
		percentPayee("50", domain.ApplyExclusively, []string{"ghost"}, "fees"),
	})

	assert.Equal(t, []string{"1", "0"}, amounts(dist))
	assert.Equal(t, "1", dist.Total.String())
}

func TestDistribute_OverSubscribedBaseFails(t *testing.T) {
	carve := domain.Payee{
		Destination: uuid.New(),
		Currency:    "USD",
		RateType:    domain.RateFlat,
		Rate:        domain.MustMoney("1.50"),
		ApplyType:   domain.ApplyInclusively,
		Group:       []string{"fees"},
		ApplyGroup:  []string{"vendor"},
	}
	ordered, err := Resolve([]domain.Payee{flatPayee("1.00", "vendor"), carve})
	require.NoError(t, err)

	dist, err := Distribute(domain.Zero, uuid.New(), ordered)
	assert.Nil(t, dist)
	assert.ErrorIs(t, err, domain.ErrInvalidPayee)
}

func TestDistribute_ExemptGroupExcludedFromBase(t *testing.T) {
	fee := percentPayee("10", domain.ApplyExclusively, []string{"pool"}, "fees")
	fee.ExemptGroup = []string{"tax"}

	taxed := flatPayee("1.00", "pool")
	exempt := flatPayee("4.00", "pool")
	exempt.Group = []string{"pool", "tax"}

	dist := distribute(t, []domain.Payee{taxed, exempt, fee})

	// Base is 1.00, not 5.00: the tax-tagged contribution is excluded.
	assert.Equal(t, "0.1", dist.Transfers[2].Amount.String())
}

func TestDistribute_RunningTotalCarveReducesMembersProportionally(t *testing.T) {
	carve := domain.Payee{
		Destination: uuid.New(),
		Currency:    "USD",
		RateType:    domain.RateFlat,
		Rate:        domain.MustMoney("3.00"),
		ApplyType:   domain.ApplyInclusively,
		Group:       []string{"fees"},
	}
	ordered, err := Resolve([]domain.Payee{flatPayee("5.00", "vendor"), carve})
	require.NoError(t, err)

	dist, err := Distribute(domain.MustMoney("10.00"), uuid.New(), ordered)
	require.NoError(t, err)

	// The base is the 15.00 running total. The vendor transfer loses only
	// its 5/15 share of the carve; the root headroom covers the rest.
	assert.Equal(t, []string{"4", "3"}, amounts(dist))
	assert.Equal(t, "15", dist.Total.String())
}

func TestDistribute_RunningTotalCarveWithinRootHeadroomSucceeds(t *testing.T) {
	carve := domain.Payee{
		Destination: uuid.New(),
		Currency:    "USD",
		RateType:    domain.RateFlat,
		Rate:        domain.MustMoney("6.00"),
		ApplyType:   domain.ApplyInclusively,
		Group:       []string{"fees"},
	}
	ordered, err := Resolve([]domain.Payee{flatPayee("5.00", "vendor"), carve})
	require.NoError(t, err)

	// 6.00 exceeds the vendor transfer but not the 15.00 base; the carve
	// only fails when a contributor would go negative.
	dist, err := Distribute(domain.MustMoney("10.00"), uuid.New(), ordered)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "6"}, amounts(dist))
	assert.Equal(t, "15", dist.Total.String())
}

func TestDistribute_RootAmountSeedsRunningTotal(t *testing.T) {
	ordered, err := Resolve([]domain.Payee{
		percentPayee("2", domain.ApplyExclusively, nil, "fees"),
	})
	require.NoError(t, err)

	dist, err := Distribute(domain.MustMoney("100.00"), uuid.New(), ordered)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, amounts(dist))
	assert.Equal(t, "102", dist.Total.String())
}
