package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_SKUFor(t *testing.T) {
	product := Product{SKUs: map[string]string{"S-Rouge": "TS-S-RG", "M-Rouge": ""}}

	t.Run("returns registered sku", func(t *testing.T) {
		sku, ok := product.SKUFor("S-Rouge")
		assert.True(t, ok)
		assert.Equal(t, "TS-S-RG", sku)
	})

	t.Run("empty sku counts as missing", func(t *testing.T) {
		_, ok := product.SKUFor("M-Rouge")
		assert.False(t, ok)
	})

	t.Run("unknown key is missing", func(t *testing.T) {
		_, ok := product.SKUFor("XL-Noir")
		assert.False(t, ok)
	})

	t.Run("nil map is missing", func(t *testing.T) {
		_, ok := (&Product{}).SKUFor("default")
		assert.False(t, ok)
	})
}

func TestProduct_EANFor(t *testing.T) {
	tests := []struct {
		name       string
		product    Product
		key        string
		wantEAN    string
		wantLegacy bool
	}{
		{
			name:    "per-variant ean wins",
			product: Product{EANs: map[string]string{"S": "4006381333931"}, LegacyEAN: "9780201379624"},
			key:     "S",
			wantEAN: "4006381333931",
		},
		{
			name:       "falls back to legacy ean",
			product:    Product{EANs: map[string]string{"S": ""}, LegacyEAN: "9780201379624"},
			key:        "S",
			wantEAN:    "9780201379624",
			wantLegacy: true,
		},
		{
			name:    "no ean at all",
			product: Product{},
			key:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ean, legacy := tt.product.EANFor(tt.key)
			assert.Equal(t, tt.wantEAN, ean)
			assert.Equal(t, tt.wantLegacy, legacy)
		})
	}
}

func TestShop_FindProducts(t *testing.T) {
	shop := Shop{
		ID: "shop-1",
		Products: []Product{
			{ID: "p1"},
			{ID: "p2"},
			{ID: "p3"},
		},
	}

	t.Run("keeps shop order", func(t *testing.T) {
		products := shop.FindProducts([]string{"p3", "p1"})
		require.Len(t, products, 2)
		assert.Equal(t, "p1", products[0].ID)
		assert.Equal(t, "p3", products[1].ID)
	})

	t.Run("ignores unknown ids", func(t *testing.T) {
		products := shop.FindProducts([]string{"nope"})
		assert.Empty(t, products)
	})
}

func TestShop_DisplayName(t *testing.T) {
	assert.Equal(t, "Tournée 2025", (&Shop{Name: "shop", ProjectName: "Tournée 2025"}).DisplayName())
	assert.Equal(t, "shop", (&Shop{Name: "shop"}).DisplayName())
}

func TestCustomer_FindShop(t *testing.T) {
	customer := Customer{Shops: []Shop{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}}

	shop, ok := customer.FindShop("b")
	require.True(t, ok)
	assert.Equal(t, "B", shop.Name)

	// returned pointer aliases the customer's shop
	shop.Name = "B2"
	assert.Equal(t, "B2", customer.Shops[1].Name)

	_, ok = customer.FindShop("c")
	assert.False(t, ok)
}

func TestProductFamily_IsPrintOnDemand(t *testing.T) {
	assert.True(t, FamilyPOD.IsPrintOnDemand())
	assert.False(t, FamilyMerch.IsPrintOnDemand())
	assert.False(t, FamilyPhono.IsPrintOnDemand())
}
