package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrders(orders ...domain.Order) *fakeOrders {
	f := &fakeOrders{orders: map[string]*domain.Order{}}
	for i := range orders {
		o := orders[i]
		f.orders[o.ID] = &o
	}
	return f
}

func (f *fakeOrders) Get(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return *o, nil
}

func (f *fakeOrders) ClaimPaid(_ context.Context, id string, gw domain.GatewayBlock, paidAt time.Time) (domain.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, false, ErrOrderNotFound
	}
	if o.PromoApplied {
		return domain.Order{}, false, nil
	}
	o.Status = domain.StatusSucceeded
	o.PromoApplied = true
	o.PaidAt = &paidAt
	o.Gateway = gw
	return *o, true, nil
}

func (f *fakeOrders) MarkFailed(_ context.Context, id string) error {
	return f.markTerminal(id, domain.StatusFailed)
}

func (f *fakeOrders) MarkCanceled(_ context.Context, id string) error {
	return f.markTerminal(id, domain.StatusCanceled)
}

func (f *fakeOrders) markTerminal(id string, status domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status == domain.StatusRequiresPayment {
		o.Status = status
	}
	return nil
}

type fakeCatalog struct {
	mu              sync.Mutex
	products        map[string]domain.Product
	categories      map[string]domain.Category
	buyers          map[string]domain.Buyer
	sellers         map[string]domain.Seller
	promoCounts     map[string]int
	categoryLookups int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:    map[string]domain.Product{},
		categories:  map[string]domain.Category{},
		buyers:      map[string]domain.Buyer{},
		sellers:     map[string]domain.Seller{},
		promoCounts: map[string]int{},
	}
}

func (f *fakeCatalog) ProductByID(_ context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, errors.New("product not found")
	}
	return p, nil
}

func (f *fakeCatalog) CategoryByID(_ context.Context, id string) (domain.Category, error) {
	f.mu.Lock()
	f.categoryLookups++
	f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return domain.Category{}, errors.New("category not found")
	}
	return c, nil
}

func (f *fakeCatalog) BuyerByID(_ context.Context, id string) (domain.Buyer, error) {
	b, ok := f.buyers[id]
	if !ok {
		return domain.Buyer{}, errors.New("buyer not found")
	}
	return b, nil
}

func (f *fakeCatalog) SellerByID(_ context.Context, id string) (domain.Seller, error) {
	s, ok := f.sellers[id]
	if !ok {
		return domain.Seller{}, errors.New("seller not found")
	}
	return s, nil
}

func (f *fakeCatalog) IncrementPromoUsage(_ context.Context, code string, by int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promoCounts[code] += by
	return nil
}

type fakeLicenses struct {
	mu   sync.Mutex
	rows []domain.License
}

func (f *fakeLicenses) Exists(_ context.Context, orderID, productID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.rows {
		if l.OrderID == orderID && l.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLicenses) LatestIssued(_ context.Context, userID, productID string) (*domain.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.License
	for i := range f.rows {
		l := f.rows[i]
		if l.UserID != userID || l.ProductID != productID || l.Status == domain.LicenseFailed {
			continue
		}
		if latest == nil || l.CreatedAt.After(latest.CreatedAt) {
			latest = &l
		}
	}
	return latest, nil
}

func (f *fakeLicenses) Save(_ context.Context, lic domain.License) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, lic)
	return nil
}

type fakePayouts struct {
	mu          sync.Mutex
	payouts     []domain.SellerPayout
	commissions []domain.AdminCommission
	balances    map[string]float64
	failFor     string
}

func newFakePayouts() *fakePayouts {
	return &fakePayouts{balances: map[string]float64{}}
}

func (f *fakePayouts) Exists(_ context.Context, orderID, productID, sellerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payouts {
		if p.OrderID == orderID && p.ProductID == productID && p.SellerID == sellerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayouts) SavePayout(_ context.Context, p domain.SellerPayout, c domain.AdminCommission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor == p.ProductID {
		return errors.New("storage unavailable")
	}
	f.payouts = append(f.payouts, p)
	f.commissions = append(f.commissions, c)
	f.balances[p.SellerID] += p.NetAmount
	return nil
}

type renewCall struct {
	key      string
	duration int
	unit     domain.IntervalUnit
}

type fakeLicenseClient struct {
	mu           sync.Mutex
	issueKey     string
	issueExpires *time.Time
	issueErr     error
	renewExpires *time.Time
	renewErr     error
	issueCalls   []LicenseIssue
	renewCalls   []renewCall
}

func (f *fakeLicenseClient) Issue(_ context.Context, req LicenseIssue) (string, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issueCalls = append(f.issueCalls, req)
	if f.issueErr != nil {
		return "", nil, f.issueErr
	}
	return f.issueKey, f.issueExpires, nil
}

func (f *fakeLicenseClient) Renew(_ context.Context, key string, duration int, unit domain.IntervalUnit) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renewCalls = append(f.renewCalls, renewCall{key: key, duration: duration, unit: unit})
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	return f.renewExpires, nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []string
	sales         []string
	licenseMails  []string
	rejections    []string
}

func (f *fakeNotifier) OrderConfirmation(_ context.Context, _ domain.Buyer, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, order.ID)
	return nil
}

func (f *fakeNotifier) SaleNotification(_ context.Context, seller domain.Seller, _ domain.Order, _ []string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, seller.ID)
	return nil
}

func (f *fakeNotifier) LicenseIssued(_ context.Context, _ domain.Buyer, lic domain.License, _ string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.licenseMails = append(f.licenseMails, lic.ProductID)
	return nil
}

func (f *fakeNotifier) PaymentRejected(_ context.Context, _ domain.Buyer, order domain.Order, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejections = append(f.rejections, order.ID)
	return nil
}

type fakeSubs struct {
	mu       sync.Mutex
	paid     map[string]time.Time
	failures map[string]string
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{paid: map[string]time.Time{}, failures: map[string]string{}}
}

func (f *fakeSubs) RecordPayment(_ context.Context, _, _, reference string, periodEnd time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.paid[reference]; ok {
		return false, nil
	}
	f.paid[reference] = periodEnd
	return true, nil
}

func (f *fakeSubs) RecordFailure(_ context.Context, _, _, reference, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[reference] = reason
	return nil
}

type fakeEnrollments struct {
	mu   sync.Mutex
	paid map[string]string
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{paid: map[string]string{}}
}

func (f *fakeEnrollments) MarkPaid(_ context.Context, courseID, _, reference string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.paid[reference]; ok {
		return false, nil
	}
	f.paid[reference] = courseID
	return true, nil
}

func (f *fakeEnrollments) MarkFailed(_ context.Context, _, _, _ string) error {
	return nil
}
