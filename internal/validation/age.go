package validation

import "time"

// MinimumAge is the youngest age, in years, at which a student may enrol.
const MinimumAge = 16

// IsEligible reports whether someone born on birthDate is at least
// MinimumAge years old at now. The boundary is inclusive: a birthday
// exactly MinimumAge years before now is eligible.
func IsEligible(birthDate, now time.Time) bool {
	return !birthDate.After(now.AddDate(-MinimumAge, 0, 0))
}
