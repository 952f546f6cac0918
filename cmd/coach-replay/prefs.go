// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"sync"

	"github.com/sagielster/DeviceLinkAssistant/lib/prefs"
)

// reloadingPrefs is a prefs.Store backed by a file that can be reread.
// Replaced files stay open until Close: an analysis may still be
// reading a key from one.
type reloadingPrefs struct {
	path string

	mu      sync.Mutex
	current *prefs.File
	retired []*prefs.File
}

func openPrefs(path string) (*reloadingPrefs, error) {
	file, err := prefs.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &reloadingPrefs{path: path, current: file}, nil
}

func (store *reloadingPrefs) Lookup(key string) string {
	store.mu.Lock()
	current := store.current
	store.mu.Unlock()
	return current.Lookup(key)
}

// reload rereads the file. On error the previous values stay in use.
func (store *reloadingPrefs) reload() error {
	file, err := prefs.LoadFile(store.path)
	if err != nil {
		return err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.retired = append(store.retired, store.current)
	store.current = file
	return nil
}

func (store *reloadingPrefs) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	var errs []error
	for _, file := range append(store.retired, store.current) {
		errs = append(errs, file.Close())
	}
	store.retired = nil
	return errors.Join(errs...)
}
