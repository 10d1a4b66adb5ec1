// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// ErrConfiguration marks errors that must stop a run before any fixture is
// evaluated: invalid weights, unknown variants, a missing corpus directory.
// Test with errors.Is.
var ErrConfiguration = errors.New("configuration error")
