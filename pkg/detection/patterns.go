package detection

import "regexp"

// BrandPattern pairs a card brand with its compiled expression. Group 1
// captures the digit run including any space or hyphen separators.
type BrandPattern struct {
	Brand   Brand
	Pattern *regexp.Regexp
}

// CardPatterns holds the compiled brand expressions. Construct once and
// share by reference; the set is immutable after construction.
type CardPatterns struct {
	brands []BrandPattern
}

// NewCardPatterns compiles the brand expressions. Matches are anchored by
// non-digit boundaries so digit runs embedded in longer numbers are not
// reported.
func NewCardPatterns() *CardPatterns {
	return &CardPatterns{
		brands: []BrandPattern{
			{BrandMastercard, regexp.MustCompile(`(?m)(?:\D|^)(5[1-5][0-9]{2}(?: |-|)[0-9]{4}(?: |-|)[0-9]{4}(?: |-|)[0-9]{4})(?:\D|$)`)},
			{BrandVisa, regexp.MustCompile(`(?m)(?:\D|^)(4[0-9]{3}(?: |-|)[0-9]{4}(?: |-|)[0-9]{4}(?: |-|)[0-9]{4})(?:\D|$)`)},
			{BrandAmex, regexp.MustCompile(`(?m)(?:\D|^)((?:34|37)[0-9]{2}(?: |-|)[0-9]{6}(?: |-|)[0-9]{5})(?:\D|$)`)},
		},
	}
}

// Brands returns the ordered pattern list. Order matters: the finder
// honors list order when brands compete for the same text.
func (c *CardPatterns) Brands() []BrandPattern {
	return c.brands
}
