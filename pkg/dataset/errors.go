package dataset

import "errors"

// ErrNotFound indicates no completed dataset exists at the requested location.
var ErrNotFound = errors.New("dataset not found")

// ErrCorrupt indicates a dataset exists but its metadata or event log cannot be parsed.
var ErrCorrupt = errors.New("dataset is corrupt")

// ErrPersistence indicates the event log or metadata could not be written durably.
var ErrPersistence = errors.New("dataset persistence failure")

// ErrWriterOverloaded indicates the append queue stayed full beyond the
// backpressure ceiling and the session must fail rather than grow
// memory unbounded.
var ErrWriterOverloaded = errors.New("dataset writer overloaded")

// ErrWriterClosed indicates an append after the writer stopped accepting events.
var ErrWriterClosed = errors.New("dataset writer closed")
