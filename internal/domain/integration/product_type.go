package integration

import (
	"github.com/merchportal/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// ProductTypeCode represents the provider's product type enumeration
// ---------------------------------------------------------------------------

// ProductTypeCode is a product type accepted by the logistics provider
type ProductTypeCode string

const (
	ProductTypeCD        ProductTypeCode = "CD Client"
	ProductTypeVinyl     ProductTypeCode = "Vinyle Client"
	ProductTypeDVD       ProductTypeCode = "DVD Client"
	ProductTypeBluRay    ProductTypeCode = "BD Client"
	ProductTypeTShirt    ProductTypeCode = "T-shirt Client"
	ProductTypeHoodie    ProductTypeCode = "Hoodie Client"
	ProductTypePantalon  ProductTypeCode = "Pantalon Client"
	ProductTypeChemise   ProductTypeCode = "Chemise Client"
	ProductTypeCasquette ProductTypeCode = "Casquette Client"
	ProductTypeBonnet    ProductTypeCode = "Bonnet Client"
	ProductTypeObject    ProductTypeCode = "Objet Client"
	ProductTypeSticker   ProductTypeCode = "Sticker Client"
	ProductTypePoster    ProductTypeCode = "Affiche Client"
	ProductTypeBook      ProductTypeCode = "Livre Disque Client"

	// ProductTypeOther is the fallback for every (family, kind) pair missing
	// from the tables below. The provider accepts it for any article.
	ProductTypeOther ProductTypeCode = "Autre produit"
)

// IsValid checks if the code belongs to the provider enumeration
func (c ProductTypeCode) IsValid() bool {
	switch c {
	case ProductTypeCD, ProductTypeVinyl, ProductTypeDVD, ProductTypeBluRay,
		ProductTypeTShirt, ProductTypeHoodie, ProductTypePantalon, ProductTypeChemise,
		ProductTypeCasquette, ProductTypeBonnet, ProductTypeObject, ProductTypeSticker,
		ProductTypePoster, ProductTypeBook, ProductTypeOther:
		return true
	}
	return false
}

// String returns the provider value
func (c ProductTypeCode) String() string {
	return string(c)
}

// merchProductTypes maps physical merchandise kinds
var merchProductTypes = map[catalog.ProductKind]ProductTypeCode{
	catalog.KindTShirt:       ProductTypeTShirt,
	catalog.KindHoodie:       ProductTypeHoodie,
	catalog.KindPantalon:     ProductTypePantalon,
	catalog.KindChemise:      ProductTypeChemise,
	catalog.KindCasquette:    ProductTypeCasquette,
	catalog.KindBonnet:       ProductTypeBonnet,
	catalog.KindMug:          ProductTypeObject,
	catalog.KindBracelet:     ProductTypeObject,
	catalog.KindCoque:        ProductTypeObject,
	catalog.KindSticker:      ProductTypeSticker,
	catalog.KindLithographie: ProductTypePoster,
	catalog.KindPhotographie: ProductTypePoster,
	catalog.KindLivre:        ProductTypeBook,
	catalog.KindAutre:        ProductTypeOther,
}

// podKinds lists the merchandise kinds offered in print-on-demand. They reuse
// the merchandise codes; bonnets are not printed on demand.
var podKinds = map[catalog.ProductKind]struct{}{
	catalog.KindTShirt:       {},
	catalog.KindHoodie:       {},
	catalog.KindPantalon:     {},
	catalog.KindChemise:      {},
	catalog.KindCasquette:    {},
	catalog.KindMug:          {},
	catalog.KindBracelet:     {},
	catalog.KindCoque:        {},
	catalog.KindSticker:      {},
	catalog.KindLithographie: {},
	catalog.KindPhotographie: {},
	catalog.KindLivre:        {},
	catalog.KindAutre:        {},
}

// phonoProductTypes maps recorded media kinds. They have no print-on-demand variant.
var phonoProductTypes = map[catalog.ProductKind]ProductTypeCode{
	catalog.KindCD:     ProductTypeCD,
	catalog.KindVinyl:  ProductTypeVinyl,
	catalog.KindDVD:    ProductTypeDVD,
	catalog.KindBluRay: ProductTypeBluRay,
}

// ResolveProductType returns the provider product type for a product family
// and kind. Outside print-on-demand the kind alone decides; print-on-demand
// products only resolve the kinds in podKinds. The second value is false when
// the pair is unmapped and ProductTypeOther was returned.
func ResolveProductType(family catalog.ProductFamily, kind catalog.ProductKind) (ProductTypeCode, bool) {
	if family.IsPrintOnDemand() {
		if _, ok := podKinds[kind]; !ok {
			return ProductTypeOther, false
		}
		return merchProductTypes[kind], true
	}
	if code, ok := merchProductTypes[kind]; ok {
		return code, true
	}
	if code, ok := phonoProductTypes[kind]; ok {
		return code, true
	}
	return ProductTypeOther, false
}
