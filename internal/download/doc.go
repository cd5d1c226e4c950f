// Package download saves a resolved product photo to disk.
//
// A Chain tries its strategies in order: a plain request, a request carrying
// the session cookies, and finally a browser screenshot. The first strategy
// that returns data wins; the chain fails only when every one of them did.
package download
