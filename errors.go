package xlquote

import "errors"

var (
	// ErrTemplateNotFound means the starting template workbook, or a
	// sheet the layout requires, is missing. Fatal.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrBlockNotFound means a label could not be located inside its
	// scan window. Callers writing derived values treat it as "skip
	// this value", not as a generation failure.
	ErrBlockNotFound = errors.New("labeled block not found")

	// ErrNoEntries means the request carries no line items at all.
	ErrNoEntries = errors.New("request has no entries")
)
