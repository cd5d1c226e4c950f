// Package database stores the history of poster runs in SQLite.
//
// Every run is kept with its navigation results, the extracted
// specification and the poster record, so earlier results can be listed and
// compared without scraping again. modernc.org/sqlite keeps the binary free
// of cgo; the database is a single file in the data directory.
package database
