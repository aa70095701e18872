// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracksdk

import "fmt"

// Module is an optional SDK extension, such as push messaging or
// in-app content. Modules register on an SDK instance, receive it at
// initialization, and react to identity transitions via Hooks.
type Module interface {
	// Name uniquely identifies the module on one SDK instance.
	Name() string

	// Initialize wires the module into the SDK. Called exactly once,
	// during RegisterModule; an error rejects the registration.
	Initialize(sdk *SDK) error
}

// RegisterModule initializes m and adds it to the SDK's registry.
func (s *SDK) RegisterModule(m Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	name := m.Name()
	if _, exists := s.modules[name]; exists {
		return fmt.Errorf("%w: %s", ErrModuleAlreadyRegistered, name)
	}

	if err := m.Initialize(s); err != nil {
		return fmt.Errorf("initialize module %s: %w", name, err)
	}

	s.modules[name] = m
	s.logger.Info("module registered", "module", name)
	return nil
}

// Module returns the registered module with the given name.
func (s *SDK) Module(name string) (Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, name)
	}
	return m, nil
}
