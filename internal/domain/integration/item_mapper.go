package integration

import (
	"fmt"

	"github.com/merchportal/backend/internal/domain/catalog"
)

// WarningCode classifies a non-fatal mapping diagnostic
type WarningCode string

const (
	WarningMissingEAN         WarningCode = "MISSING_EAN"
	WarningInvalidEAN         WarningCode = "INVALID_EAN"
	WarningLegacyEAN          WarningCode = "LEGACY_EAN"
	WarningUnmappedType       WarningCode = "UNMAPPED_PRODUCT_TYPE"
	WarningFieldLimitExceeded WarningCode = "FIELD_LIMIT"
)

// MappingWarning is an advisory diagnostic produced while mapping a product.
// Warnings never change the produced items.
type MappingWarning struct {
	ProductID  string
	VariantKey string
	Code       WarningCode
	Message    string
}

// MappingResult holds the items of one product and the diagnostics raised
// while building them
type MappingResult struct {
	Items    []Item
	Warnings []MappingWarning
}

// MapProductToItems converts a product into one provider item per variant.
// A variant without SKU fails the whole product and no item is returned.
// Missing or invalid barcodes and unmapped product types only raise warnings.
func MapProductToItems(product *catalog.Product, shop *catalog.Shop, customer *catalog.Customer) (*MappingResult, error) {
	result := &MappingResult{}
	warn := func(key string, code WarningCode, format string, args ...any) {
		result.Warnings = append(result.Warnings, MappingWarning{
			ProductID:  product.ID,
			VariantKey: key,
			Code:       code,
			Message:    fmt.Sprintf(format, args...),
		})
	}

	productType, mapped := ResolveProductType(product.Family, product.Kind)
	if !mapped {
		warn("", WarningUnmappedType, "no product type mapping for %s/%s, using %q",
			product.Family, product.Kind, ProductTypeOther)
	}

	artist := shop.ArtistName
	if artist == "" {
		artist = customer.CompanyName
	}
	var marketingDate string
	if shop.ReleaseDate != nil {
		marketingDate = shop.ReleaseDate.UTC().Format(marketingDateLayout)
	}
	cptClient := FormatClientAccount(customer.AccountNumber)

	combos := GenerateCombinations(product)
	items := make([]Item, 0, len(combos))
	for _, combo := range combos {
		sku, ok := product.SKUFor(combo.Key)
		if !ok {
			return nil, NewAbortedError(ErrMissingSKU,
				"SKU is missing for product variant %q of product %q. All variants must have a valid SKU.",
				combo.Key, product.Title)
		}

		ean, fromLegacy := product.EANFor(combo.Key)
		barCode := ""
		switch {
		case ean == "":
			warn(combo.Key, WarningMissingEAN, "EAN is missing for variant %s", combo.Key)
		case !IsValidEAN13(ean):
			warn(combo.Key, WarningInvalidEAN, "invalid EAN13 %q for variant %s, sending empty barCode", ean, combo.Key)
		default:
			barCode = ean
			if fromLegacy {
				warn(combo.Key, WarningLegacyEAN, "using product-level EAN %s for variant %s", ean, combo.Key)
			}
		}

		item := Item{
			ProductType:        productType,
			CptClient:          cptClient,
			SKU:                sku,
			Title:              truncate(product.Title, MaxTitleLength),
			CN23Label:          truncate(product.Title, MaxCN23LabelLength),
			CustodyCode:        DefaultCustodyCode,
			Artist:             truncate(artist, MaxArtistLength),
			BarCode:            barCode,
			Description:        truncate(product.Description, MaxDescriptionLen),
			Size:               combo.SizeValue(),
			Color:              combo.ColorValue(),
			ItemClassification: string(product.Family),
			MarketingDate:      marketingDate,
			Boutique:           truncate(shop.DisplayName(), MaxBoutiqueLength),
			Occ:                product.Secondhand,
		}
		for _, v := range item.Violations() {
			warn(combo.Key, WarningFieldLimitExceeded, "%s", v.String())
		}
		items = append(items, item)
	}

	result.Items = items
	return result, nil
}
