package marshal

import "errors"

var (
	// ErrUnrecognisedType is returned when a value has no marshaller, or a
	// structure's type id has no unmarshaller.
	ErrUnrecognisedType = errors.New("marshal: unrecognised type")
	// ErrUnsupportedColumn is returned for a table column whose element
	// type has no pvData equivalent in a table.
	ErrUnsupportedColumn = errors.New("marshal: unsupported table column type")
	// ErrUnexpectedMessageType is returned for a message that is not a
	// CALL, GET or PUT, or a structure of none of those shapes.
	ErrUnexpectedMessageType = errors.New("marshal: unexpected message type")
	// ErrNonStringKey is returned for a Go map whose keys are not strings.
	ErrNonStringKey = errors.New("marshal: map key is not a string")
	// ErrOutOfRange is returned for a Go int that does not fit a pvData int.
	ErrOutOfRange = errors.New("marshal: value out of range")
)
