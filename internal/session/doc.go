// Package session persists the catalog's cookies between runs.
//
// Clearing the anti-bot interstitial yields clearance cookies that keep
// working for a while. The Store loads them at startup, hands them to the
// fetchers and absorbs whatever the site sets during a run. The store is an
// explicit handle owned by the caller; no package level state exists.
//
// The file format is a JSON list of {name, value, domain, path, ...} records,
// the same shape browsers export.
package session
