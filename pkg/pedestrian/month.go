package pedestrian

import (
	"fmt"
	"strings"
	"time"
)

// MonthName returns the English name the dataset stores for month 1-12.
func MonthName(month int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("month %d out of range 1-12", month)
	}
	return time.Month(month).String(), nil
}

// CanonicalMonth normalises a month name to the capitalisation of MonthName.
func CanonicalMonth(name string) (string, error) {
	name = strings.TrimSpace(name)
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(name, m.String()) {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("unknown month name %q", name)
}
