package mongostore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/merchportal/backend/internal/domain/catalog"
)

// customerDocument is the stored shape of a portal customer.
// Loosely typed fields were written by several generations of the portal.
type customerDocument struct {
	ID                 any            `bson:"_id"`
	RaisonSociale      string         `bson:"raisonSociale"`
	CompteClientNumber any            `bson:"CompteClientNumber,omitempty"`
	Shops              []shopDocument `bson:"shops"`
}

type shopDocument struct {
	ShopID     string            `bson:"shopId"`
	Name       string            `bson:"name"`
	NomProjet  string            `bson:"nomProjet"`
	ArtistName string            `bson:"artistName"`
	DateSortie any               `bson:"dateSortie,omitempty"`
	Products   []productDocument `bson:"products"`
}

type productDocument struct {
	ProductID     string            `bson:"productId"`
	Titre         string            `bson:"titre"`
	Description   string            `bson:"description"`
	TypeProduit   string            `bson:"typeProduit"`
	Produit       string            `bson:"produit"`
	Tailles       []string          `bson:"tailles"`
	Couleurs      []string          `bson:"couleurs"`
	SKUs          map[string]string `bson:"skus"`
	EANs          map[string]string `bson:"eans"`
	CodeEAN       any               `bson:"codeEAN,omitempty"`
	Occ           bool              `bson:"occ"`
	HasEC         bool              `bson:"hasEC"`
	ECGeneratedAt *time.Time        `bson:"ecGeneratedAt,omitempty"`
}

func (d *customerDocument) toDomain() *catalog.Customer {
	c := &catalog.Customer{
		ID:            idString(d.ID),
		CompanyName:   d.RaisonSociale,
		AccountNumber: scalarString(d.CompteClientNumber),
		Shops:         make([]catalog.Shop, 0, len(d.Shops)),
	}
	for i := range d.Shops {
		c.Shops = append(c.Shops, d.Shops[i].toDomain())
	}
	return c
}

func (d *shopDocument) toDomain() catalog.Shop {
	s := catalog.Shop{
		ID:          d.ShopID,
		Name:        d.Name,
		ProjectName: d.NomProjet,
		ArtistName:  d.ArtistName,
		ReleaseDate: dateValue(d.DateSortie),
		Products:    make([]catalog.Product, 0, len(d.Products)),
	}
	for i := range d.Products {
		s.Products = append(s.Products, d.Products[i].toDomain())
	}
	return s
}

func (d *productDocument) toDomain() catalog.Product {
	return catalog.Product{
		ID:            d.ProductID,
		Title:         d.Titre,
		Description:   d.Description,
		Family:        catalog.ProductFamily(d.TypeProduit),
		Kind:          catalog.ProductKind(d.Produit),
		Sizes:         d.Tailles,
		Colors:        d.Couleurs,
		SKUs:          d.SKUs,
		EANs:          d.EANs,
		LegacyEAN:     scalarString(d.CodeEAN),
		Secondhand:    d.Occ,
		HasEC:         d.HasEC,
		ECGeneratedAt: d.ECGeneratedAt,
	}
}

func idString(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return scalarString(v)
}

// scalarString renders a string or numeric field. Numbers are written
// without exponent so account numbers and barcodes keep their digits.
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case primitive.Decimal128:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// dateValue reads a BSON date or a date string
func dateValue(v any) *time.Time {
	switch x := v.(type) {
	case primitive.DateTime:
		t := x.Time().UTC()
		return &t
	case time.Time:
		t := x.UTC()
		return &t
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
				return &t
			}
		}
	}
	return nil
}
