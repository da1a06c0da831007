// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared by the synthesis and wiring stages. Operations wrap
// one of these with the offending value so callers can test with errors.Is.
var (
	// ErrInvalidArgument reports a caller error such as a non-positive
	// agent count or a base probability outside (0, 1).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGenerationFailure reports that the attribute model could not
	// produce an agent. No partial population is returned.
	ErrGenerationFailure = errors.New("agent generation failed")

	// ErrPolicyFailure reports that an affinity policy returned a
	// probability outside (0, 1).
	ErrPolicyFailure = errors.New("affinity policy failed")
)
