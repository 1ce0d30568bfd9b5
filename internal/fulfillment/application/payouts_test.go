package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

func payoutEnv() (*PayoutCalculator, *fakePayouts, *fakeCatalog) {
	catalog := newFakeCatalog()
	payouts := newFakePayouts()
	return NewPayoutCalculator(testLogger(), payouts, catalog, DefaultCommissionPct), payouts, catalog
}

func TestCategoryCommissionApplied(t *testing.T) {
	calc, payouts, catalog := payoutEnv()
	pct30 := 30.0
	catalog.categories["cat_c"] = domain.Category{ID: "cat_c", CommissionPct: &pct30}
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s1", ShopID: "shop1", CategoryID: "cat_c"}

	order := paidOrder(domain.OrderItem{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 2, SellerID: "s1", ShopID: "shop1"})
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))

	require.Len(t, payouts.payouts, 1)
	p := payouts.payouts[0]
	assert.Equal(t, int64(2000), p.GrossCents)
	assert.Equal(t, int64(600), p.CommissionCents)
	assert.Equal(t, int64(1400), p.NetCents)
	assert.Equal(t, 30.0, p.CommissionPct)

	require.Len(t, payouts.commissions, 1)
	assert.Equal(t, int64(600), payouts.commissions[0].AmountCents)
	assert.Equal(t, 14.0, payouts.balances["s1"])
}

func TestParentCategoryFallback(t *testing.T) {
	calc, payouts, catalog := payoutEnv()
	pct25 := 25.0
	catalog.categories["cat_parent"] = domain.Category{ID: "cat_parent", CommissionPct: &pct25}
	catalog.categories["cat_child"] = domain.Category{ID: "cat_child", ParentID: "cat_parent"}
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s1", CategoryID: "cat_child"}

	order := paidOrder(domain.OrderItem{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"})
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))

	require.Len(t, payouts.payouts, 1)
	assert.Equal(t, int64(250), payouts.payouts[0].CommissionCents)
	assert.Equal(t, 25.0, payouts.payouts[0].CommissionPct)
}

func TestDefaultCommissionWithoutCategory(t *testing.T) {
	calc, payouts, catalog := payoutEnv()
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s1"}

	order := paidOrder(domain.OrderItem{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"})
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))

	require.Len(t, payouts.payouts, 1)
	assert.Equal(t, int64(200), payouts.payouts[0].CommissionCents)
	assert.Equal(t, DefaultCommissionPct, payouts.payouts[0].CommissionPct)
}

func TestCommissionRateCachedPerOrder(t *testing.T) {
	calc, _, catalog := payoutEnv()
	pct15 := 15.0
	catalog.categories["cat_c"] = domain.Category{ID: "cat_c", CommissionPct: &pct15}
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s1", CategoryID: "cat_c"}
	catalog.products["prod_2"] = domain.Product{ID: "prod_2", SellerID: "s1", CategoryID: "cat_c"}

	order := paidOrder(
		domain.OrderItem{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
		domain.OrderItem{ProductID: "prod_2", UnitAmountCents: 500, Qty: 1, SellerID: "s1"},
	)
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))
	assert.Equal(t, 1, catalog.categoryLookups)
}

func TestMissingProductFallsBackToDefaultCommission(t *testing.T) {
	calc, payouts, _ := payoutEnv()

	order := paidOrder(domain.OrderItem{ProductID: "prod_gone", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"})
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))

	require.Len(t, payouts.payouts, 1)
	assert.Equal(t, "s1", payouts.payouts[0].SellerID)
	assert.Equal(t, DefaultCommissionPct, payouts.payouts[0].CommissionPct)
	assert.Equal(t, int64(800), payouts.payouts[0].NetCents)
}

func TestSellerResolvedFromProductWhenItemLacksIt(t *testing.T) {
	calc, payouts, catalog := payoutEnv()
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s9", ShopID: "shop9"}

	order := paidOrder(domain.OrderItem{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 1})
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))

	require.Len(t, payouts.payouts, 1)
	assert.Equal(t, "s9", payouts.payouts[0].SellerID)
	assert.Equal(t, "shop9", payouts.payouts[0].ShopID)
}

func TestNonSucceededOrderIsSkipped(t *testing.T) {
	calc, payouts, catalog := payoutEnv()
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s1"}

	order := domain.NewOrder("ord_1", "u_1", "usd",
		[]domain.OrderItem{{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"}})
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))
	assert.Empty(t, payouts.payouts)
}

func TestExistingPayoutRowIsSkipped(t *testing.T) {
	calc, payouts, catalog := payoutEnv()
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s1"}
	payouts.payouts = append(payouts.payouts, domain.SellerPayout{OrderID: "ord_1", ProductID: "prod_1", SellerID: "s1"})

	order := paidOrder(domain.OrderItem{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"})
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))

	assert.Len(t, payouts.payouts, 1)
	assert.Empty(t, payouts.commissions)
	assert.Zero(t, payouts.balances["s1"])
}

func TestOneItemFailureDoesNotBlockOthers(t *testing.T) {
	calc, payouts, catalog := payoutEnv()
	catalog.products["prod_1"] = domain.Product{ID: "prod_1", SellerID: "s1"}
	catalog.products["prod_2"] = domain.Product{ID: "prod_2", SellerID: "s2"}
	payouts.failFor = "prod_1"

	order := paidOrder(
		domain.OrderItem{ProductID: "prod_1", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
		domain.OrderItem{ProductID: "prod_2", UnitAmountCents: 500, Qty: 1, SellerID: "s2"},
	)
	require.NoError(t, calc.EnsurePayouts(context.Background(), order))

	require.Len(t, payouts.payouts, 1)
	assert.Equal(t, "prod_2", payouts.payouts[0].ProductID)
}
