// Package config provides configuration structures and utilities for autoposter.
// It defines the catalog site settings, the interstitial wait policy,
// storage locations and report preferences.
package config
