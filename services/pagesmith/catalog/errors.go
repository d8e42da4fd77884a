// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import "errors"

// ErrNotFound indicates an unknown kind or variant was requested.
var ErrNotFound = errors.New("catalog entry not found")

// NotFoundError describes which catalog reference could not be resolved.
type NotFoundError struct {
	Kind    Kind
	Variant string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Variant == "" {
		return "unknown section kind " + string(e.Kind)
	}
	return "unknown section variant " + string(e.Kind) + "/" + e.Variant
}

// Is reports ErrNotFound equivalence for errors.Is.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
