// Package main provides the entry point for the autoposter CLI.
//
// autoposter looks up a vehicle in an online catalog, extracts its
// specification and photo, and writes the data a poster renderer needs.
//
// Usage:
//
//	autoposter generate --make Audi --model TT
//	autoposter generate --mock
//
// See --help for all available options.
package main

func main() {
	Execute()
}
