package events

import "errors"

// ErrUnknownType is returned by Bus.Emit when the given type is not a member
// of the closed event enum.
var ErrUnknownType = errors.New("events: unknown event type")
