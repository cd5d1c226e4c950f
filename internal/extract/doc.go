// Package extract turns a vehicle detail page into a model.SpecRecord.
//
// Extraction is a small rule engine: an ordered list of (field, pattern)
// rules is evaluated against the page text, single spaced. For each field the
// first matching rule wins and later rules for that field are skipped. Rules
// run most specific first, so a unit-qualified value beats a bare number.
// A field no rule matches stays model.Unknown.
package extract
