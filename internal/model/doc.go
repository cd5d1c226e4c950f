// Package model defines the data structures shared across autoposter.
//
// This package contains the following main types:
//   - CatalogEntry and Submodel: links discovered while walking the catalog
//   - SpecRecord: the fixed-schema specification of one vehicle
//   - Extraction: the state carried through the pipeline steps
//   - PosterData: the record handed to the poster renderer
//   - Run: one pipeline execution as stored in the history database
//
// Catalog entries and spec records are snapshots of a single page fetch and
// are never modified once built.
package model
