// Package catalog walks the vehicle catalog: it resolves a make to its
// catalog page and descends make, model and submodel listings.
//
// Parsing is split from fetching. The Parse* and Find* functions work on a
// goquery document and are what tests exercise with canned fixtures; the
// Navigator methods fetch a page and hand it to them.
package catalog
