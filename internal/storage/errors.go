package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or was deleted.
	ErrNotFound = errors.New("not found")
	// ErrNotEditable is returned when a campaign's status forbids edits.
	ErrNotEditable = errors.New("campaign not editable")
)
