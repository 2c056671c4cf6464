package domain

import "errors"

// ErrUnknownTool is returned when a tool name is not part of the fixed tool set
// or has no registered handler.
var ErrUnknownTool = errors.New("unknown tool")

// ErrEmptyQuery is returned when a planning run is started without a query.
var ErrEmptyQuery = errors.New("query is empty")

// ErrInvalidRequest is returned when a tool request misses required fields.
var ErrInvalidRequest = errors.New("invalid tool request")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")
