package domain

import "time"

type LicenseStatus string

const (
	LicenseIssued  LicenseStatus = "issued"
	LicenseFailed  LicenseStatus = "failed"
	LicenseRenewed LicenseStatus = "renewed"
)

// License is unique per (order, product). A renewal appends a new row for the
// new validity period but reuses the provider key. ExpiresAt nil means
// lifetime.
type License struct {
	ID        string
	OrderID   string
	ProductID string
	UserID    string
	Status    LicenseStatus
	Key       string
	ExpiresAt *time.Time
	LastError string
	CreatedAt time.Time
}

type IntervalUnit string

const (
	IntervalMonth IntervalUnit = "month"
	IntervalYear  IntervalUnit = "year"
)

// AddInterval advances t by n billing intervals.
func AddInterval(t time.Time, n int, unit IntervalUnit) time.Time {
	if unit == IntervalYear {
		return t.AddDate(n, 0, 0)
	}
	return t.AddDate(0, n, 0)
}
