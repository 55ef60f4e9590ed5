// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotImplemented indicates an adapter was invoked on a case outside its
// support matrix, usually because the support check was bypassed.
// Test with errors.Is.
var ErrNotImplemented = errors.New("not implemented")

// NotSupportedError is an adapter's static refusal of a case, produced by
// CheckSupport before anything is timed. The sweep records it as a skip.
// Test with errors.As.
type NotSupportedError struct {
	// Backend is the adapter name.
	Backend string

	// Reasons lists the unmet requirements.
	Reasons []string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("backend %q does not support this case: %s",
		e.Backend, strings.Join(e.Reasons, "; "))
}
