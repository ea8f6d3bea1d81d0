package utils

import (
	"errors"
	"time"
)

func timezoneOrUTC(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func CurrentDateInTimezone(tz string) string {
	return time.Now().In(timezoneOrUTC(tz)).Format("2006-01-02")
}

// ValidateDeliverySlot parses a delivery date ("2006-01-02") and time
// ("15:04") and rejects slots in the past, evaluated in the restaurant's
// timezone.
func ValidateDeliverySlot(date string, timeOfDay string, tz string) error {
	loc := timezoneOrUTC(tz)
	slot, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, loc)
	if err != nil {
		return errors.New("invalid delivery date or time")
	}
	if slot.Before(time.Now().In(loc)) {
		return errors.New("delivery slot is in the past")
	}
	return nil
}
