// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracksdk

import "errors"

// Sentinel errors for the SDK facade.
var (
	// ErrClosed indicates the SDK was already closed.
	ErrClosed = errors.New("sdk is closed")

	// ErrNotInitialized indicates a module lookup before the module was
	// registered and initialized.
	ErrNotInitialized = errors.New("module not initialized")

	// ErrModuleAlreadyRegistered indicates a duplicate module name.
	ErrModuleAlreadyRegistered = errors.New("module already registered")
)
