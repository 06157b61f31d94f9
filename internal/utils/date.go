// package utils provides utility functions to support various operations within the application.
package utils

import (
	"errors"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// Diary dates arrive as YYYYMMDD from the mobile client and YYYY-MM-DD from
// the web client. Both normalize to a bare calendar date in UTC.
var diaryDateLayouts = []string{"20060102", "2006-01-02"}

// ParseDiaryDate normalizes a diary date string to a canonical calendar date.
func ParseDiaryDate(value string) (time.Time, error) {
	for _, layout := range diaryDateLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseDiaryMonth normalizes a YYYYMM month string and returns the first day
// of that month.
func ParseDiaryMonth(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation("200601", value, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

// FormatDiaryDate renders a calendar date in the YYYY-MM-DD form used in responses.
func FormatDiaryDate(date time.Time) string {
	return date.Format("2006-01-02")
}
