package multipass

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for setup mistakes: a missing verify hook,
	// an incomplete template, a bad config value.
	ErrConfiguration = errors.New("multipass: configuration error")
	// ErrUnknownProviderType is returned when no template is registered for a type.
	ErrUnknownProviderType = errors.New("multipass: unknown provider type")
	// ErrDuplicateProviderType is returned by Register when the type is taken.
	ErrDuplicateProviderType = errors.New("multipass: provider type already registered")
	// ErrInvalidParams is returned when tenant or provider type is missing.
	ErrInvalidParams = errors.New("multipass: tenant and provider type required")
)

// Phase names the downstream step that failed.
type Phase string

const (
	PhaseOptions      Phase = "options"
	PhaseConstruct    Phase = "construct"
	PhaseAuthenticate Phase = "authenticate"
)

// DownstreamError wraps a failure raised by a delegated strategy. The
// original error is reachable through errors.Is / errors.As.
type DownstreamError struct {
	Phase Phase
	Key   Key
	Err   error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("multipass: %s %s: %v", e.Phase, e.Key, e.Err)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

// IsDownstream reports whether err came from a delegated strategy.
func IsDownstream(err error) bool {
	var de *DownstreamError
	return errors.As(err, &de)
}
