package validation

// ValidCPF reports whether cpf is an 11-digit Brazilian taxpayer number
// whose two trailing check digits match the official mod-11 algorithm.
//
// Anything that is not exactly 11 ASCII digits is rejected, as is any
// number made of a single repeated digit ("00000000000", "11111111111", …)
// which satisfies the checksum but is never issued.
func ValidCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}

	var digits [11]int
	for i := 0; i < len(cpf); i++ {
		c := cpf[i]
		if c < '0' || c > '9' {
			return false
		}
		digits[i] = int(c - '0')
	}

	allSame := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	return checkDigit(digits[:9]) == digits[9] &&
		checkDigit(digits[:10]) == digits[10]
}

// checkDigit weighs digits from len+1 down to 2 and applies the mod-11 rule.
func checkDigit(digits []int) int {
	weight := len(digits) + 1
	sum := 0
	for _, d := range digits {
		sum += d * weight
		weight--
	}

	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}
