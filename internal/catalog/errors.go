package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel every NotFoundError unwraps to.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a catalog lookup that matched nothing.
type NotFoundError struct {
	// Kind is what was looked up, for example "make".
	Kind string

	// Name is the requested name.
	Name string

	// Title is the title of the last page searched. It tells an interstitial
	// apart from a genuinely missing entry.
	Title string

	// DumpPath is where the last page was saved for inspection, if anywhere.
	DumpPath string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	if e.Title != "" {
		msg += fmt.Sprintf(" (page title: %q)", e.Title)
	}
	return msg
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
