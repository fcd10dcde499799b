// Package catalog contains the read model of the merchandise catalog.
//
// Customers own shops, shops own products. Products carry size and color
// axes plus per-variant SKU and EAN maps keyed by variant key. The catalog is
// maintained by the portal back office; the export pipeline only reads it and
// flags exported products.
package catalog
