package detection

import (
	"github.com/MacAttak/pan-scanner/pkg/validation"
)

// Finder applies the pattern set to text and keeps candidates that pass
// the Luhn checksum and are not excluded.
type Finder struct {
	patterns  *CardPatterns
	validator *validation.LuhnValidator
	excluded  validation.ExclusionList
}

// NewFinder creates a finder over the shared pattern set.
func NewFinder(patterns *CardPatterns, excluded validation.ExclusionList) *Finder {
	return &Finder{
		patterns:  patterns,
		validator: &validation.LuhnValidator{},
		excluded:  excluded,
	}
}

// Search scans text for PANs. Brands are tried in list order; for each
// brand the search stops at its first accepted match, so a text yields at
// most one PAN per brand. The raw candidate is masked immediately and not
// retained.
func (f *Finder) Search(text string) []PAN {
	if len(text) < MinPANLength {
		return nil
	}

	var matches []PAN
	for _, bp := range f.patterns.Brands() {
		for _, groups := range bp.Pattern.FindAllStringSubmatch(text, -1) {
			candidate := groups[1]
			if ok, _ := f.validator.Validate(candidate); !ok {
				continue
			}
			if f.excluded.IsExcluded(candidate) {
				continue
			}
			matches = append(matches, NewPAN(bp.Brand, candidate))
			break
		}
	}
	return matches
}
