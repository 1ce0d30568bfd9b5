package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

func subscriptionProduct(id, seller string) domain.Product {
	return domain.Product{
		ID: id, Title: "Widget Pro", Kind: domain.KindSoftware,
		Subscription: true, Interval: domain.IntervalMonth, SellerID: seller,
	}
}

func lifetimeProduct(id, seller string) domain.Product {
	return domain.Product{
		ID: id, Title: "Widget", Kind: domain.KindSoftware,
		LicenseEnabled: true, SellerID: seller,
	}
}

func licenseEnv(products ...domain.Product) (*LicenseOrchestrator, *fakeLicenses, *fakeLicenseClient, *fakeCatalog, *fakeNotifier) {
	catalog := newFakeCatalog()
	for _, p := range products {
		catalog.products[p.ID] = p
	}
	catalog.buyers["u_1"] = domain.Buyer{ID: "u_1", Email: "buyer@example.com", Name: "Ada", Surname: "Lovelace", Phone: "+100"}

	licenses := &fakeLicenses{}
	client := &fakeLicenseClient{issueKey: "LIC-NEW"}
	notifier := &fakeNotifier{}
	o := NewLicenseOrchestrator(testLogger(), licenses, catalog, client, notifier)
	return o, licenses, client, catalog, notifier
}

func paidOrder(items ...domain.OrderItem) domain.Order {
	o := domain.NewOrder("ord_1", "u_1", "usd", items)
	o.Status = domain.StatusSucceeded
	return o
}

func TestIssuePathPersistsIssuedLicense(t *testing.T) {
	o, licenses, client, _, notifier := licenseEnv(subscriptionProduct("prod_a", "s1"))
	expires := time.Now().UTC().AddDate(0, 1, 0)
	client.issueExpires = &expires

	any, err := o.EnsureLicenses(context.Background(), paidOrder(
		domain.OrderItem{ProductID: "prod_a", Title: "Widget Pro", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
	))
	require.NoError(t, err)
	assert.True(t, any)

	require.Len(t, client.issueCalls, 1)
	assert.Equal(t, 1, client.issueCalls[0].Duration)
	assert.Equal(t, domain.IntervalMonth, client.issueCalls[0].Unit)
	assert.Equal(t, "Ada", client.issueCalls[0].Name)

	require.Len(t, licenses.rows, 1)
	lic := licenses.rows[0]
	assert.Equal(t, domain.LicenseIssued, lic.Status)
	assert.Equal(t, "LIC-NEW", lic.Key)
	require.NotNil(t, lic.ExpiresAt)
	assert.Equal(t, expires, *lic.ExpiresAt)
	assert.Equal(t, []string{"prod_a"}, notifier.licenseMails)
}

func TestLifetimeProductPersistsNoExpiry(t *testing.T) {
	o, licenses, client, _, _ := licenseEnv(lifetimeProduct("prod_l", "s1"))
	// even when the service answers with an expiry, a one-time purchase is
	// stored as lifetime
	expires := time.Now().UTC().AddDate(99, 0, 0)
	client.issueExpires = &expires

	_, err := o.EnsureLicenses(context.Background(), paidOrder(
		domain.OrderItem{ProductID: "prod_l", Title: "Widget", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
	))
	require.NoError(t, err)

	require.Len(t, client.issueCalls, 1)
	assert.Equal(t, lifetimeYears, client.issueCalls[0].Duration)
	assert.Equal(t, domain.IntervalYear, client.issueCalls[0].Unit)

	require.Len(t, licenses.rows, 1)
	assert.Equal(t, domain.LicenseIssued, licenses.rows[0].Status)
	assert.Nil(t, licenses.rows[0].ExpiresAt)
}

func TestExistingLicenseRowSkips(t *testing.T) {
	o, licenses, client, _, _ := licenseEnv(subscriptionProduct("prod_a", "s1"))
	licenses.rows = append(licenses.rows, domain.License{
		OrderID: "ord_1", ProductID: "prod_a", UserID: "u_1", Status: domain.LicenseIssued, Key: "LIC-OLD",
	})

	any, err := o.EnsureLicenses(context.Background(), paidOrder(
		domain.OrderItem{ProductID: "prod_a", Title: "Widget Pro", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
	))
	require.NoError(t, err)
	assert.False(t, any)
	assert.Empty(t, client.issueCalls)
	assert.Len(t, licenses.rows, 1)
}

func TestNonLicensableProductSkips(t *testing.T) {
	o, licenses, client, _, _ := licenseEnv(domain.Product{
		ID: "prod_s", Title: "Sticker Pack", Kind: domain.KindStandard, SellerID: "s2",
	})
	any, err := o.EnsureLicenses(context.Background(), paidOrder(
		domain.OrderItem{ProductID: "prod_s", Title: "Sticker Pack", UnitAmountCents: 500, Qty: 1, SellerID: "s2"},
	))
	require.NoError(t, err)
	assert.False(t, any)
	assert.Empty(t, client.issueCalls)
	assert.Empty(t, licenses.rows)
}

func TestRenewalReusesKey(t *testing.T) {
	o, licenses, client, _, _ := licenseEnv(subscriptionProduct("prod_a", "s1"))
	prevExpiry := time.Now().UTC().AddDate(0, 0, 10)
	licenses.rows = append(licenses.rows, domain.License{
		OrderID: "ord_0", ProductID: "prod_a", UserID: "u_1",
		Status: domain.LicenseIssued, Key: "LIC-OLD", ExpiresAt: &prevExpiry,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	})

	any, err := o.EnsureLicenses(context.Background(), paidOrder(
		domain.OrderItem{ProductID: "prod_a", Title: "Widget Pro", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
	))
	require.NoError(t, err)
	assert.True(t, any)

	assert.Empty(t, client.issueCalls)
	require.Len(t, client.renewCalls, 1)
	assert.Equal(t, "LIC-OLD", client.renewCalls[0].key)

	require.Len(t, licenses.rows, 2)
	renewed := licenses.rows[1]
	assert.Equal(t, domain.LicenseRenewed, renewed.Status)
	assert.Equal(t, "LIC-OLD", renewed.Key)
	// service returned no expiry: extend from the previous expiry, which is
	// still in the future
	require.NotNil(t, renewed.ExpiresAt)
	assert.WithinDuration(t, prevExpiry.AddDate(0, 1, 0), *renewed.ExpiresAt, time.Minute)
}

func TestRenewalExtendsFromNowWhenLapsed(t *testing.T) {
	o, licenses, client, _, _ := licenseEnv(subscriptionProduct("prod_a", "s1"))
	lapsed := time.Now().UTC().AddDate(0, -2, 0)
	licenses.rows = append(licenses.rows, domain.License{
		OrderID: "ord_0", ProductID: "prod_a", UserID: "u_1",
		Status: domain.LicenseIssued, Key: "LIC-OLD", ExpiresAt: &lapsed,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	})

	_, err := o.EnsureLicenses(context.Background(), paidOrder(
		domain.OrderItem{ProductID: "prod_a", Title: "Widget Pro", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
	))
	require.NoError(t, err)
	require.Len(t, client.renewCalls, 1)

	renewed := licenses.rows[1]
	require.NotNil(t, renewed.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 1, 0), *renewed.ExpiresAt, time.Minute)
}

func TestMissingIdentityFailsHard(t *testing.T) {
	o, licenses, client, catalog, notifier := licenseEnv(subscriptionProduct("prod_a", "s1"))
	catalog.buyers["u_1"] = domain.Buyer{ID: "u_1", Email: "buyer@example.com", Name: "Ada"}

	any, err := o.EnsureLicenses(context.Background(), paidOrder(
		domain.OrderItem{ProductID: "prod_a", Title: "Widget Pro", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
	))
	require.NoError(t, err)
	assert.False(t, any)

	assert.Empty(t, client.issueCalls, "service must not be called with incomplete identity")
	require.Len(t, licenses.rows, 1)
	assert.Equal(t, domain.LicenseFailed, licenses.rows[0].Status)
	assert.Contains(t, licenses.rows[0].LastError, "incomplete buyer identity")
	assert.Empty(t, notifier.licenseMails)
}

func TestExternalFailureIsolatedPerItem(t *testing.T) {
	o, licenses, client, _, _ := licenseEnv(
		subscriptionProduct("prod_a", "s1"),
		lifetimeProduct("prod_l", "s2"),
	)
	client.issueErr = errors.New("license service: status 502")

	order := paidOrder(
		domain.OrderItem{ProductID: "prod_a", Title: "Widget Pro", UnitAmountCents: 1000, Qty: 1, SellerID: "s1"},
		domain.OrderItem{ProductID: "prod_l", Title: "Widget", UnitAmountCents: 500, Qty: 1, SellerID: "s2"},
	)
	any, err := o.EnsureLicenses(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, any)

	// both items were attempted despite the first failing
	assert.Len(t, client.issueCalls, 2)
	require.Len(t, licenses.rows, 2)
	for _, lic := range licenses.rows {
		assert.Equal(t, domain.LicenseFailed, lic.Status)
		assert.Contains(t, lic.LastError, "status 502")
	}
}
