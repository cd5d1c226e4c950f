// Package pipeline runs the extraction of one make as an ordered list of
// steps and turns the outcome into a poster.
//
// Each step reads what earlier steps left in a model.Extraction and fills in
// its own part. Only a missing make, a make page without models and fetch
// failures abort a run; everything further down degrades to unknown values.
// A Generator converts an aborted run into the canned poster record, and a
// BatchRunner processes several makes with bounded concurrency.
package pipeline
