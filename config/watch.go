// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package config

import (
	"context"

	"github.com/maruel/interrupt"
)

// Watch is a no-op outside linux; it blocks until ctx is done or Ctrl-C is
// pressed. Restart the process to pick up changes.
func Watch(ctx context.Context, path string, last *Config, fn func(*Config)) error {
	select {
	case <-ctx.Done():
	case <-interrupt.Channel:
	}
	return nil
}
