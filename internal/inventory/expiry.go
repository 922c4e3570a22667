package inventory

import (
	"sort"
	"time"

	"github.com/medstock/medstock/internal/shared"
)

// Expiry status labels.
const (
	ExpiryUnknown  = "unknown"
	ExpiryExpired  = "expired"
	ExpiryCritical = "critical"
	ExpiryWarning  = "warning"
	ExpiryOK       = "ok"
)

const secondsPerDay = 24 * 60 * 60

const (
	criticalWindowDays = 15
	warningWindowDays  = 90
)

// ExpiryTime parses the medicine's expiry date. ok is false for absent or
// malformed values.
func (m Medicine) ExpiryTime() (time.Time, bool) {
	if m.ExpiryDate == "" {
		return time.Time{}, false
	}
	t, err := shared.ParseDate(m.ExpiryDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysUntilExpiry returns whole days from ref to the expiry date, negative once
// expired. It returns nil when the expiry date cannot be determined.
func DaysUntilExpiry(m Medicine, ref time.Time) *int {
	expiry, ok := m.ExpiryTime()
	if !ok {
		return nil
	}
	// Both are UTC midnights, so the difference is a whole number of days.
	days := int((expiry.Unix() - shared.DateOf(ref).Unix()) / secondsPerDay)
	return &days
}

// ExpiryStatus buckets days-left into a display status.
func ExpiryStatus(daysLeft *int) string {
	switch {
	case daysLeft == nil:
		return ExpiryUnknown
	case *daysLeft < 0:
		return ExpiryExpired
	case *daysLeft <= criticalWindowDays:
		return ExpiryCritical
	case *daysLeft <= warningWindowDays:
		return ExpiryWarning
	default:
		return ExpiryOK
	}
}

// Classify builds the view of m as seen on ref. Discount fields stay null.
func Classify(m Medicine, ref time.Time) MedicineView {
	days := DaysUntilExpiry(m, ref)
	return MedicineView{Medicine: m, DaysLeft: days, ExpiryStatus: ExpiryStatus(days)}
}

// ClassifyAll classifies every medicine against the same reference date.
func ClassifyAll(meds []Medicine, ref time.Time) []MedicineView {
	views := make([]MedicineView, 0, len(meds))
	for _, m := range meds {
		views = append(views, Classify(m, ref))
	}
	return views
}

// FilterExpiringWithin keeps in-stock medicines expiring on or before
// ref+windowDays, ordered by expiry date then id.
func FilterExpiringWithin(meds []Medicine, windowDays int, ref time.Time) []MedicineView {
	cutoff := shared.DateOf(ref).AddDate(0, 0, windowDays)
	views := make([]MedicineView, 0)
	for _, m := range meds {
		if m.Quantity <= 0 {
			continue
		}
		expiry, ok := m.ExpiryTime()
		if !ok || expiry.After(cutoff) {
			continue
		}
		views = append(views, Classify(m, ref))
	}
	sort.SliceStable(views, func(i, j int) bool {
		ei, _ := views[i].ExpiryTime()
		ej, _ := views[j].ExpiryTime()
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return views[i].ID < views[j].ID
	})
	return views
}
