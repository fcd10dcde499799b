package integration

import (
	"testing"

	"github.com/merchportal/backend/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// ProductTypeCode Tests
// ---------------------------------------------------------------------------

func TestResolveProductType(t *testing.T) {
	tests := []struct {
		name       string
		family     catalog.ProductFamily
		kind       catalog.ProductKind
		want       ProductTypeCode
		wantMapped bool
	}{
		{"phono cd", catalog.FamilyPhono, catalog.KindCD, ProductTypeCD, true},
		{"phono vinyl", catalog.FamilyPhono, catalog.KindVinyl, ProductTypeVinyl, true},
		{"phono dvd", catalog.FamilyPhono, catalog.KindDVD, ProductTypeDVD, true},
		{"phono blu-ray", catalog.FamilyPhono, catalog.KindBluRay, ProductTypeBluRay, true},
		{"merch t-shirt", catalog.FamilyMerch, catalog.KindTShirt, ProductTypeTShirt, true},
		{"merch hoodie", catalog.FamilyMerch, catalog.KindHoodie, ProductTypeHoodie, true},
		{"merch pantalon", catalog.FamilyMerch, catalog.KindPantalon, ProductTypePantalon, true},
		{"merch chemise", catalog.FamilyMerch, catalog.KindChemise, ProductTypeChemise, true},
		{"merch casquette", catalog.FamilyMerch, catalog.KindCasquette, ProductTypeCasquette, true},
		{"merch bonnet", catalog.FamilyMerch, catalog.KindBonnet, ProductTypeBonnet, true},
		{"merch mug", catalog.FamilyMerch, catalog.KindMug, ProductTypeObject, true},
		{"merch bracelet", catalog.FamilyMerch, catalog.KindBracelet, ProductTypeObject, true},
		{"merch coque", catalog.FamilyMerch, catalog.KindCoque, ProductTypeObject, true},
		{"merch sticker", catalog.FamilyMerch, catalog.KindSticker, ProductTypeSticker, true},
		{"merch lithographie", catalog.FamilyMerch, catalog.KindLithographie, ProductTypePoster, true},
		{"merch photographie", catalog.FamilyMerch, catalog.KindPhotographie, ProductTypePoster, true},
		{"merch livre", catalog.FamilyMerch, catalog.KindLivre, ProductTypeBook, true},
		{"merch autre", catalog.FamilyMerch, catalog.KindAutre, ProductTypeOther, true},
		{"pod t-shirt reuses merch code", catalog.FamilyPOD, catalog.KindTShirt, ProductTypeTShirt, true},
		{"pod mug reuses merch code", catalog.FamilyPOD, catalog.KindMug, ProductTypeObject, true},
		{"pod autre", catalog.FamilyPOD, catalog.KindAutre, ProductTypeOther, true},
		{"pod casquette reuses merch code", catalog.FamilyPOD, catalog.KindCasquette, ProductTypeCasquette, true},
		{"pod bonnet is not offered", catalog.FamilyPOD, catalog.KindBonnet, ProductTypeOther, false},
		{"pod cd has no mapping", catalog.FamilyPOD, catalog.KindCD, ProductTypeOther, false},
		{"kind decides outside pod", catalog.FamilyMerch, catalog.KindVinyl, ProductTypeVinyl, true},
		{"unknown kind falls back", catalog.FamilyMerch, catalog.ProductKind("Tote bag"), ProductTypeOther, false},
		{"empty kind falls back", catalog.ProductFamily(""), catalog.ProductKind(""), ProductTypeOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mapped := ResolveProductType(tt.family, tt.kind)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMapped, mapped)
			assert.True(t, got.IsValid())
		})
	}
}

func TestProductTypeCode_IsValid(t *testing.T) {
	assert.True(t, ProductTypeOther.IsValid())
	assert.True(t, ProductTypeBook.IsValid())
	assert.False(t, ProductTypeCode("T-Shirt").IsValid())
	assert.False(t, ProductTypeCode("").IsValid())
}

func TestProductTypeTables_OnlyProviderCodes(t *testing.T) {
	for kind, code := range merchProductTypes {
		assert.True(t, code.IsValid(), "merch kind %s", kind)
	}
	for kind, code := range phonoProductTypes {
		assert.True(t, code.IsValid(), "phono kind %s", kind)
	}
	for kind := range podKinds {
		_, ok := merchProductTypes[kind]
		assert.True(t, ok, "pod kind %s has no merch code", kind)
	}
}
