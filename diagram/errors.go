package diagram

import "go.trai.ch/zerr"

var (
	// ErrEmptyID is returned when a node or connection has no identity.
	ErrEmptyID = zerr.New("empty id")

	// ErrUnknownNode is returned when an operation references a node that is not indexed.
	ErrUnknownNode = zerr.New("unknown node")

	// ErrUnknownConnection is returned when an operation references a connection that is not indexed.
	ErrUnknownConnection = zerr.New("unknown connection")

	// ErrSelfLoop is returned when a connection would join a node to itself.
	ErrSelfLoop = zerr.New("connection source and target are the same node")

	// ErrDuplicateConnection is returned when the same source and target are already connected.
	ErrDuplicateConnection = zerr.New("connection already exists")

	// ErrReverseConnection is returned when the target is already connected back to the source.
	ErrReverseConnection = zerr.New("reverse connection already exists")

	// ErrCycle is returned when cycle rejection is enabled and the connection would close a cycle.
	ErrCycle = zerr.New("connection would create a cycle")

	// ErrInvalidTransform is returned for non-finite offsets or non-positive sizes.
	ErrInvalidTransform = zerr.New("invalid transform")

	// ErrInvalidConfig is returned when configuration values are out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrSessionClosed is returned by mutations after a session has been closed.
	ErrSessionClosed = zerr.New("session closed")
)
