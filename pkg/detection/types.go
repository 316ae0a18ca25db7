package detection

import "strings"

// Brand identifies a payment card scheme.
type Brand string

const (
	BrandMastercard Brand = "Mastercard"
	BrandVisa       Brand = "Visa"
	BrandAmex       Brand = "AMEX"
)

// MinPANLength is the shortest PAN the engine can match (AMEX, 15 digits).
// Text payloads shorter than this are skipped without scanning.
const MinPANLength = 15

// PAN records a matched primary account number. Only the masked form is
// retained; the raw digit string never outlives NewPAN.
type PAN struct {
	Brand  Brand  `json:"brand"`
	Masked string `json:"masked"`
}

// NewPAN masks the candidate digit run. Separators are stripped first;
// the first six and last four digits are kept, everything between is
// replaced with '*'.
func NewPAN(brand Brand, candidate string) PAN {
	digits := StripSeparators(candidate)
	masked := digits
	if len(digits) > 10 {
		masked = digits[:6] + strings.Repeat("*", len(digits)-10) + digits[len(digits)-4:]
	}
	return PAN{Brand: brand, Masked: masked}
}

// String renders the match the way reports print it, e.g. "Visa:411111******1111".
func (p PAN) String() string {
	return string(p.Brand) + ":" + p.Masked
}

// StripSeparators removes every non-digit rune from a candidate match.
func StripSeparators(candidate string) string {
	var b strings.Builder
	b.Grow(len(candidate))
	for _, r := range candidate {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
