// Package document validates Brazilian taxpayer identifiers (CPF and CNPJ)
// using the canonical weighted modulo-11 check digit scheme.
package document

import "strings"

// Kind identifies the document format being validated.
type Kind string

const (
	// KindCPF is the 11 digit natural person registry.
	KindCPF Kind = "cpf"
	// KindCNPJ is the 14 digit legal entity registry.
	KindCNPJ Kind = "cnpj"
)

const (
	cpfLength  = 11
	cnpjLength = 14
)

// Normalize strips every non-digit character from the input.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate reports whether the input is a well formed document of the given
// kind. Input is normalized first; malformed input simply yields false.
func Validate(kind Kind, raw string) bool {
	digits := Normalize(raw)
	switch kind {
	case KindCPF:
		return validateDigits(digits, cpfLength, 10)
	case KindCNPJ:
		return validateDigits(digits, cnpjLength, 5)
	default:
		return false
	}
}

func validateDigits(digits string, length, firstWeightBase int) bool {
	if len(digits) != length {
		return false
	}
	if allSame(digits) {
		return false
	}
	body := length - 2
	first := checkDigit(digits[:body], firstWeightBase)
	if first != int(digits[body]-'0') {
		return false
	}
	second := checkDigit(digits[:body+1], firstWeightBase+1)
	return second == int(digits[body+1]-'0')
}

// checkDigit computes one verification digit over the given prefix. Weights
// start at base and decrease per position, wrapping back to 9 whenever they
// would drop below 2.
func checkDigit(prefix string, base int) int {
	weight := base
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
