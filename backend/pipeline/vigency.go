package pipeline

import (
	"strings"
	"time"

	"github.com/AnTengye/contractvigency/backend/model"
)

// ExpiringWindowDays is the last day count still classified as expiring soon.
const ExpiringWindowDays = 30

const supplierSeparator = " - "

// ExtractSupplierName returns the name part of a "<registration id> - <name>"
// supplier cell. ok is false when the separator is absent or the name is empty.
func ExtractSupplierName(raw string) (name string, ok bool) {
	_, after, found := strings.Cut(raw, supplierSeparator)
	if !found {
		return "", false
	}
	name = strings.TrimSpace(after)
	return name, name != ""
}

// EffectiveEndDate prefers the updated end date over the original one.
func EffectiveEndDate(updated, original model.Date) model.Date {
	if updated.Valid() {
		return updated
	}
	return original
}

// DaysToExpire is the signed number of whole days from today until end.
func DaysToExpire(end, today model.Date) (int, bool) {
	if !end.Valid() || !today.Valid() {
		return 0, false
	}
	// Both are UTC midnights, so the seconds difference is a whole number of days.
	return int((end.Time().Unix() - today.Time().Unix()) / 86400), true
}

// Classify maps a day count to its status. ok=false means the count is missing.
func Classify(days int, ok bool) model.Status {
	switch {
	case !ok:
		return model.StatusInvalidDate
	case days < 0:
		return model.StatusExpired
	case days <= ExpiringWindowDays:
		return model.StatusExpiringSoon
	default:
		return model.StatusInProgress
	}
}

// Today is the reference date for a run: the calendar date of now in loc.
// A nil loc keeps now's own location.
func Today(now time.Time, loc *time.Location) model.Date {
	if loc != nil {
		now = now.In(loc)
	}
	return model.DateOf(now)
}
