package integration

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Provider field limits, in characters
const (
	CptClientLength    = 6
	CustodyCodeLength  = 8
	MaxSKULength       = 38
	MaxTitleLength     = 70
	MaxCN23LabelLength = 30
	MaxBarCodeLength   = EAN13Length
	MaxArtistLength    = 70
	MaxDescriptionLen  = 255
	MaxBoutiqueLength  = 100

	// DefaultCustodyCode is sent for every item; the portal does not use custody codes
	DefaultCustodyCode = "00000000"

	marketingDateLayout = "2006-01-02"
)

// Item is the logistics provider record for one product variant.
// JSON names follow the provider schema.
type Item struct {
	// Required fields
	ProductType ProductTypeCode `json:"productType"`
	CptClient   string          `json:"CptClient"`
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	CN23Label   string          `json:"CN23Label"`
	CustodyCode string          `json:"custodyCode"`

	// Optional fields
	Artist             string `json:"artist"`
	BarCode            string `json:"barCode"`
	Description        string `json:"description"`
	Size               string `json:"size,omitempty"`
	Color              string `json:"color,omitempty"`
	ItemClassification string `json:"itemClassification"`
	MarketingDate      string `json:"marketingDate,omitempty"`
	Boutique           string `json:"Boutique"`
	Occ                bool   `json:"occ"`
}

// FieldViolation describes an item field outside the provider limits
type FieldViolation struct {
	Field  string
	Rule   string
	Length int
}

// String returns a readable description of the violation
func (v FieldViolation) String() string {
	return fmt.Sprintf("%s %s (actual: %d)", v.Field, v.Rule, v.Length)
}

// Violations checks the item against the provider schema. Mapping already
// truncates free-text fields, so violations point at catalog data the portal
// cannot fix on its own (over-long SKUs, foreign barcodes).
func (it Item) Violations() []FieldViolation {
	var violations []FieldViolation
	exact := func(field, value string, n int) {
		if l := utf8.RuneCountInString(value); l != n {
			violations = append(violations, FieldViolation{field, fmt.Sprintf("must be exactly %d characters", n), l})
		}
	}
	atMost := func(field, value string, n int) {
		if l := utf8.RuneCountInString(value); l > n {
			violations = append(violations, FieldViolation{field, fmt.Sprintf("exceeds %d character limit", n), l})
		}
	}

	exact("CptClient", it.CptClient, CptClientLength)
	atMost("sku", it.SKU, MaxSKULength)
	atMost("title", it.Title, MaxTitleLength)
	atMost("CN23Label", it.CN23Label, MaxCN23LabelLength)
	exact("custodyCode", it.CustodyCode, CustodyCodeLength)
	atMost("barCode", it.BarCode, MaxBarCodeLength)
	atMost("artist", it.Artist, MaxArtistLength)
	atMost("description", it.Description, MaxDescriptionLen)
	atMost("Boutique", it.Boutique, MaxBoutiqueLength)
	return violations
}

// truncate normalizes s to NFC and cuts it to at most n characters
func truncate(s string, n int) string {
	s = norm.NFC.String(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// FormatClientAccount left-pads an account number with zeros and cuts it to
// the fixed provider width
func FormatClientAccount(account string) string {
	if l := utf8.RuneCountInString(account); l < CptClientLength {
		account = strings.Repeat("0", CptClientLength-l) + account
	}
	return truncate(account, CptClientLength)
}
