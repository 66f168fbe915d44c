// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package settings

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/pquery/pkg/util/syncutil"
)

// registry contains all defined settings, their types and default values.
//
// Entries in registry should be accompanied by an exported, typesafe getter
// (see IntSetting and BoolSetting).
//
// Registry should never be mutated after init (except in tests), as it is read
// concurrently by different callers.
var registry struct {
	syncutil.Mutex
	settings map[string]wrappedSetting
}

// register adds a setting to the registry.
func register(key, desc string, s Setting) {
	registry.Lock()
	defer registry.Unlock()
	if registry.settings == nil {
		registry.settings = map[string]wrappedSetting{}
	}
	if _, ok := registry.settings[key]; ok {
		panic(fmt.Sprintf("setting already defined: %s", key))
	}
	s.setToDefault()
	registry.settings[key] = wrappedSetting{description: desc, setting: s}
}

type wrappedSetting struct {
	description string
	setting     Setting
}

// Setting is the interface implemented by every registered setting.
type Setting interface {
	// Key returns the name of the setting.
	Key() string
	// String returns the current value formatted for display.
	String() string
	// Typ returns the short (1 char) string denoting the type of setting.
	Typ() string

	setToDefault()
	setFromSource(src Source) error
}

// Keys returns a sorted string array with all the known keys.
func Keys() (res []string) {
	registry.Lock()
	defer registry.Unlock()
	res = make([]string, 0, len(registry.settings))
	for k := range registry.settings {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Lookup returns a Setting by name along with its description.
func Lookup(name string) (Setting, string, bool) {
	registry.Lock()
	defer registry.Unlock()
	v, ok := registry.settings[name]
	if !ok {
		return nil, "", false
	}
	return v.setting, v.description, true
}

// Reset restores every registered setting to its default value. It is meant
// for tests.
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	for _, s := range registry.settings {
		s.setting.setToDefault()
	}
}
