package sentinel

import (
	"errors"
	"fmt"
)

// Sentinel errors for infrastructure facts. The matcher client, the response
// cache and the audit sinks return these (wrapped) so services can translate
// them into domain errors without inspecting messages.
var (
	ErrUnavailable = errors.New("unavailable")
	ErrCacheMiss   = errors.New("cache miss")

	// ErrCircuitOpen is an ErrUnavailable raised without touching the network.
	ErrCircuitOpen = fmt.Errorf("%w: circuit open", ErrUnavailable)
)
