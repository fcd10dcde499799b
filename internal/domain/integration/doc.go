// Package integration contains the Integration bounded context.
// This context exports the merchandise catalog to the external logistics
// provider ("EC"), the warehouse that stores and ships the products.
//
// Key concepts:
//   - Combination: one sellable size/color variant of a product
//   - Item: the provider's record for one variant, validated against its schema
//   - ProductTypeCode: the closed set of provider product types
//   - ItemImporter: port submitting one item to the provider
//   - ImportResult: per-run aggregate of successes and failures
//   - ExportRun: persisted history of a shop export
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
