package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MacAttak/pan-scanner/pkg/validation"
)

func newTestFinder(excluded ...string) *Finder {
	return NewFinder(NewCardPatterns(), validation.NewExclusionList(excluded))
}

func TestFinder_Search(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		excluded []string
		expected []PAN
	}{
		{
			name: "visa with spaces",
			text: "card: 4111 1111 1111 1111",
			expected: []PAN{
				{Brand: BrandVisa, Masked: "411111******1111"},
			},
		},
		{
			name: "mastercard and amex in one text",
			text: "mc 5555-5555-5555-4444 and amex 378282246310005",
			expected: []PAN{
				{Brand: BrandMastercard, Masked: "555555******4444"},
				{Brand: BrandAmex, Masked: "378282*****0005"},
			},
		},
		{
			name:     "bad luhn checksum",
			text:     "4111 1111 1111 1112",
			expected: nil,
		},
		{
			name:     "excluded pan",
			text:     "4111 1111 1111 1111",
			excluded: []string{"4111111111111111"},
			expected: nil,
		},
		{
			name:     "excluded pan with separators in config",
			text:     "4111111111111111",
			excluded: []string{"4111-1111-1111-1111"},
			expected: nil,
		},
		{
			name:     "text shorter than minimum pan length",
			text:     "41111111111111",
			expected: nil,
		},
		{
			name:     "digit run embedded in longer number",
			text:     "94111111111111111",
			expected: nil,
		},
		{
			name: "first accepted match per brand wins",
			text: "4111 1111 1111 1111 then 4012 8888 8888 1881",
			expected: []PAN{
				{Brand: BrandVisa, Masked: "411111******1111"},
			},
		},
		{
			name: "invalid candidate does not stop the brand search",
			text: "4111 1111 1111 1112 then 4012 8888 8888 1881",
			expected: []PAN{
				{Brand: BrandVisa, Masked: "401288******1881"},
			},
		},
		{
			name:     "no digits at all",
			text:     "nothing interesting in this line of text",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := newTestFinder(tt.excluded...)
			matches := finder.Search(tt.text)
			assert.Equal(t, tt.expected, matches)
		})
	}
}

func TestFinder_MaskedFormExposesFirstSixLastFour(t *testing.T) {
	finder := newTestFinder()

	matches := finder.Search("5555 5555 5555 4444")
	require.Len(t, matches, 1)

	masked := matches[0].Masked
	assert.Len(t, masked, 16)
	assert.Equal(t, "555555", masked[:6])
	assert.Equal(t, "4444", masked[12:])
	assert.Equal(t, "******", masked[6:12])
}

func TestNewPAN(t *testing.T) {
	tests := []struct {
		name      string
		brand     Brand
		candidate string
		expected  string
	}{
		{"sixteen digits", BrandVisa, "4111111111111111", "411111******1111"},
		{"separators stripped", BrandMastercard, "5555-5555-5555-4444", "555555******4444"},
		{"amex fifteen digits", BrandAmex, "3782 822463 10005", "378282*****0005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pan := NewPAN(tt.brand, tt.candidate)
			assert.Equal(t, tt.expected, pan.Masked)
			assert.Equal(t, string(tt.brand)+":"+tt.expected, pan.String())
		})
	}
}

func TestCardPatterns_BrandOrder(t *testing.T) {
	brands := NewCardPatterns().Brands()
	require.Len(t, brands, 3)
	assert.Equal(t, BrandMastercard, brands[0].Brand)
	assert.Equal(t, BrandVisa, brands[1].Brand)
	assert.Equal(t, BrandAmex, brands[2].Brand)
}
