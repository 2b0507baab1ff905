// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"context"
	"log"
	"path/filepath"
	"reflect"

	"github.com/maruel/interrupt"
	fsnotify "gopkg.in/fsnotify.v1"
)

// Watch calls fn with the reloaded configuration every time the file at
// path changes, until ctx is done or Ctrl-C is pressed. The current
// configuration is passed as last; fn is only called when the content
// differs. An invalid file is logged and ignored.
//
// The directory is watched instead of the file so that editors replacing
// the file on save are handled.
func Watch(ctx context.Context, path string, last *Config, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	name := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-interrupt.Channel:
			return nil
		case err = <-watcher.Errors:
			return err
		case e := <-watcher.Events:
			if filepath.Clean(e.Name) != name || e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c, err := Load(path)
			if err != nil {
				log.Printf("config: ignoring %s: %v", path, err)
				continue
			}
			if last != nil && reflect.DeepEqual(c, last) {
				continue
			}
			last = c
			fn(c)
		}
	}
}
