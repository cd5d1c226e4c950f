// Package poster turns extraction results into the record a poster renderer
// consumes, and writes that record as a JSON manifest.
package poster
