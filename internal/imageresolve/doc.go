// Package imageresolve picks the product photo of a detail page.
//
// Strategies run in order and the first one that yields a URL wins. The
// structural strategy trusts the catalog's highlighted photo cell; the scoring
// strategy ranks every catalog image by width and directory.
package imageresolve
