// Package models contains the GORM models behind the export history tables.
// Domain types stay free of ORM tags; each model converts to and from its
// aggregate.
package models
