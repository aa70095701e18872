// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrMissingNamespace indicates the (app package, site id)
	// namespace was not fully specified.
	ErrMissingNamespace = errors.New("app package and site id are required")
)
