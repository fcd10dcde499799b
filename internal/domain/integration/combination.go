package integration

import (
	"github.com/merchportal/backend/internal/domain/catalog"
)

// DefaultCombinationKey is the variant key of a product without size or color
const DefaultCombinationKey = "default"

// Combination is one sellable variant of a product
type Combination struct {
	Key   string
	Size  *string
	Color *string
}

// SizeValue returns the size or an empty string
func (c Combination) SizeValue() string {
	if c.Size == nil {
		return ""
	}
	return *c.Size
}

// ColorValue returns the color or an empty string
func (c Combination) ColorValue() string {
	if c.Color == nil {
		return ""
	}
	return *c.Color
}

// GenerateCombinations expands the size and color axes of a product into its
// variants. With both axes the result is size-major with "{size}-{color}"
// keys; with one axis the key is the axis value; with none a single
// "default" variant is returned. The result is never empty.
func GenerateCombinations(product *catalog.Product) []Combination {
	sizes := product.Sizes
	colors := product.Colors

	switch {
	case len(sizes) > 0 && len(colors) > 0:
		combos := make([]Combination, 0, len(sizes)*len(colors))
		for _, size := range sizes {
			for _, color := range colors {
				combos = append(combos, Combination{
					Key:   size + "-" + color,
					Size:  ptr(size),
					Color: ptr(color),
				})
			}
		}
		return combos
	case len(sizes) > 0:
		combos := make([]Combination, 0, len(sizes))
		for _, size := range sizes {
			combos = append(combos, Combination{Key: size, Size: ptr(size)})
		}
		return combos
	case len(colors) > 0:
		combos := make([]Combination, 0, len(colors))
		for _, color := range colors {
			combos = append(combos, Combination{Key: color, Color: ptr(color)})
		}
		return combos
	default:
		return []Combination{{Key: DefaultCombinationKey}}
	}
}

func ptr(s string) *string {
	return &s
}
