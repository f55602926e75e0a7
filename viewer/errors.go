package viewer

import "errors"

// ErrNoMatch reports that a search reached the end of the document without
// finding the text. It is an ordinary outcome, not a failure.
var ErrNoMatch = errors.New("no match found")

// ErrNotOpen is returned by operations that need an open document.
var ErrNotOpen = errors.New("viewer: no document open")

var errEmptyPage = errors.New("page has no area")
