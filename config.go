// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tracksdk

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianTrack/pkg/device"
	"github.com/AleutianAI/AleutianTrack/pkg/logging"
	"github.com/AleutianAI/AleutianTrack/pkg/queue"
)

// Region selects the workspace's data-residency region.
type Region string

const (
	// RegionUS is the default region.
	RegionUS Region = "us"

	// RegionEU keeps all data in the EU.
	RegionEU Region = "eu"
)

// Config configures an SDK instance.
//
// SiteID, APIKey, and AppPackage are required. Everything else has a
// working default.
type Config struct {
	// SiteID identifies the workspace.
	SiteID string `validate:"required"`

	// APIKey authorizes delivery for the workspace.
	APIKey string `validate:"required"`

	// AppPackage identifies the host application; it scopes local state
	// so two apps sharing a storage path never see each other's keys.
	AppPackage string `validate:"required"`

	// Region selects data residency. Default: RegionUS.
	Region Region `validate:"oneof=us eu"`

	// StoragePath is the directory for durable local state. Required
	// unless InMemoryStorage is set.
	StoragePath string `validate:"required_without=InMemoryStorage"`

	// InMemoryStorage keeps all local state in memory. Intended for
	// tests; identity does not survive a restart.
	InMemoryStorage bool

	// AutoTrackDeviceAttributes attaches default device attributes to
	// token registrations. Default: false.
	AutoTrackDeviceAttributes bool

	// AllowAnonymousMessaging makes SetAnonymousID identify an
	// anonymous pseudo-profile that is merged on the next real
	// identify. Default: false.
	AllowAnonymousMessaging bool

	// TaskExpiration bounds how long unsent tasks are retained.
	// Default: queue.DefaultTaskExpiration.
	TaskExpiration time.Duration

	// DeviceAttributes supplies default device attributes (OS version,
	// model, app version). Nil means none.
	DeviceAttributes device.AttributesProvider

	// LogLevel sets the minimum log level. Default: logging.LevelInfo.
	LogLevel logging.Level

	// Logger overrides the SDK-constructed logger entirely.
	Logger *logging.Logger
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// withDefaults returns the config with unset optional fields filled in.
func (c Config) withDefaults() Config {
	if c.Region == "" {
		c.Region = RegionUS
	}
	if c.TaskExpiration == 0 {
		c.TaskExpiration = queue.DefaultTaskExpiration
	}
	return c
}

// Validate reports whether the config is usable.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConfigFromMap builds a Config from loosely typed key/value settings,
// the shape wrapper layers and remote config sources hand over.
//
// Recognized keys: siteId, apiKey, appPackage, region, storagePath,
// inMemoryStorage, autoTrackDeviceAttributes, allowAnonymousMessaging,
// taskExpirationSeconds, logLevel. Unknown keys are ignored; a
// recognized key with the wrong type is an error.
func ConfigFromMap(settings map[string]any) (Config, error) {
	var cfg Config

	for key, raw := range settings {
		var err error
		switch key {
		case "siteId":
			cfg.SiteID, err = stringSetting(key, raw)
		case "apiKey":
			cfg.APIKey, err = stringSetting(key, raw)
		case "appPackage":
			cfg.AppPackage, err = stringSetting(key, raw)
		case "region":
			var region string
			region, err = stringSetting(key, raw)
			cfg.Region = Region(region)
		case "storagePath":
			cfg.StoragePath, err = stringSetting(key, raw)
		case "inMemoryStorage":
			cfg.InMemoryStorage, err = boolSetting(key, raw)
		case "autoTrackDeviceAttributes":
			cfg.AutoTrackDeviceAttributes, err = boolSetting(key, raw)
		case "allowAnonymousMessaging":
			cfg.AllowAnonymousMessaging, err = boolSetting(key, raw)
		case "taskExpirationSeconds":
			var seconds float64
			seconds, err = numberSetting(key, raw)
			cfg.TaskExpiration = time.Duration(seconds * float64(time.Second))
		case "logLevel":
			var name string
			name, err = stringSetting(key, raw)
			cfg.LogLevel = logging.ParseLevel(name)
		}
		if err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func stringSetting(key string, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("setting %q: expected string, got %T", key, raw)
	}
	return s, nil
}

func boolSetting(key string, raw any) (bool, error) {
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("setting %q: expected bool, got %T", key, raw)
	}
	return b, nil
}

// numberSetting accepts the numeric types JSON decoding and host
// bridges commonly produce.
func numberSetting(key string, raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("setting %q: expected number, got %T", key, raw)
	}
}
