package catalog

import (
	"time"
)

// ProductFamily is the commercial family of a product ("typeProduit" in the portal)
type ProductFamily string

const (
	FamilyPhono ProductFamily = "Phono"
	FamilyMerch ProductFamily = "Merch"
	FamilyPOD   ProductFamily = "POD"
)

// IsPrintOnDemand reports whether products of this family are printed on demand
func (f ProductFamily) IsPrintOnDemand() bool {
	return f == FamilyPOD
}

// ProductKind is the concrete article of a product ("produit" in the portal)
type ProductKind string

const (
	KindCD           ProductKind = "CD"
	KindVinyl        ProductKind = "Vinyl"
	KindDVD          ProductKind = "DVD"
	KindBluRay       ProductKind = "Blue-Ray"
	KindTShirt       ProductKind = "T-Shirt"
	KindHoodie       ProductKind = "Hoodie"
	KindPantalon     ProductKind = "Pantalon"
	KindChemise      ProductKind = "Chemise"
	KindCasquette    ProductKind = "Casquette"
	KindBonnet       ProductKind = "Bonnet"
	KindMug          ProductKind = "Mug"
	KindBracelet     ProductKind = "Bracelet"
	KindSticker      ProductKind = "Sticker"
	KindLithographie ProductKind = "Lithographie"
	KindLivre        ProductKind = "Livre"
	KindPhotographie ProductKind = "Photographie"
	KindCoque        ProductKind = "Coque"
	KindAutre        ProductKind = "Autre"
)

// Product is a sellable article of a shop. Products are owned by the
// customer document and are read-only for the export pipeline, except for
// the EC bookkeeping fields.
type Product struct {
	ID          string
	Title       string
	Description string
	Family      ProductFamily
	Kind        ProductKind
	Sizes       []string
	Colors      []string
	// SKUs maps a variant key ("S-Rouge", "S", "Rouge" or "default") to its SKU
	SKUs map[string]string
	// EANs maps a variant key to its EAN-13 barcode
	EANs map[string]string
	// LegacyEAN is the single product-level barcode used before per-variant EANs existed
	LegacyEAN  string
	Secondhand bool

	HasEC         bool
	ECGeneratedAt *time.Time
}

// SKUFor returns the SKU registered for a variant key
func (p *Product) SKUFor(key string) (string, bool) {
	sku, ok := p.SKUs[key]
	if !ok || sku == "" {
		return "", false
	}
	return sku, true
}

// EANFor returns the barcode for a variant key, falling back to the legacy
// product-level barcode. The second value reports whether the fallback was used.
func (p *Product) EANFor(key string) (ean string, fromLegacy bool) {
	if ean := p.EANs[key]; ean != "" {
		return ean, false
	}
	if p.LegacyEAN != "" {
		return p.LegacyEAN, true
	}
	return "", false
}

// Shop is a merchandise shop (one artist project) of a customer
type Shop struct {
	ID          string
	Name        string
	ProjectName string
	ArtistName  string
	ReleaseDate *time.Time
	Products    []Product
}

// DisplayName returns the project name, or the shop name when no project is set
func (s *Shop) DisplayName() string {
	if s.ProjectName != "" {
		return s.ProjectName
	}
	return s.Name
}

// FindProducts returns the shop products whose ID is in ids, in shop order.
// Unknown IDs are ignored.
func (s *Shop) FindProducts(ids []string) []Product {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	products := make([]Product, 0, len(ids))
	for _, p := range s.Products {
		if _, ok := wanted[p.ID]; ok {
			products = append(products, p)
		}
	}
	return products
}

// Customer is a portal client company owning one or more shops
type Customer struct {
	ID          string
	CompanyName string
	// AccountNumber is the client account at the logistics provider ("CompteClientNumber")
	AccountNumber string
	Shops         []Shop
}

// FindShop returns the customer's shop with the given ID
func (c *Customer) FindShop(shopID string) (*Shop, bool) {
	for i := range c.Shops {
		if c.Shops[i].ID == shopID {
			return &c.Shops[i], true
		}
	}
	return nil, false
}
