// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package profile

import "errors"

// Sentinel errors for the profile package.
var (
	// ErrEmptyIdentifier indicates an identify call with an empty
	// identifier; rejected before any side effect.
	ErrEmptyIdentifier = errors.New("identifier must not be empty")

	// ErrNotAdmitted indicates the dispatch queue refused the task;
	// the operation was aborted and durable identity state is unchanged.
	ErrNotAdmitted = errors.New("task not admitted to dispatch queue")
)
