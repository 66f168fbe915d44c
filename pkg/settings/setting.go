// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package settings

import (
	"strconv"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// IntSetting is the interface of a setting variable that will be updated
// automatically when the corresponding configuration source changes.
type IntSetting struct {
	key          string
	defaultValue int64
	validateFn   func(int64) error
	v            atomic.Int64
}

var _ Setting = &IntSetting{}

// RegisterIntSetting defines a new setting with type int.
func RegisterIntSetting(
	key, desc string, defaultValue int64, validateFn ...func(int64) error,
) *IntSetting {
	s := &IntSetting{key: key, defaultValue: defaultValue}
	if len(validateFn) > 0 {
		s.validateFn = validateFn[0]
		if err := s.validateFn(defaultValue); err != nil {
			panic(errors.Wrapf(err, "invalid default value for %s", key))
		}
	}
	register(key, desc, s)
	return s
}

// Key implements the Setting interface.
func (i *IntSetting) Key() string { return i.key }

// Typ implements the Setting interface.
func (*IntSetting) Typ() string { return "i" }

// String implements the Setting interface.
func (i *IntSetting) String() string { return strconv.FormatInt(i.Get(), 10) }

// Get retrieves the int value in the setting.
func (i *IntSetting) Get() int64 { return i.v.Load() }

// Default returns the default value.
func (i *IntSetting) Default() int64 { return i.defaultValue }

// Validate that a value conforms with the validation function.
func (i *IntSetting) Validate(v int64) error {
	if i.validateFn != nil {
		return i.validateFn(v)
	}
	return nil
}

// Override changes the setting without validation and returns a function that
// restores the previous value. For use in tests.
func (i *IntSetting) Override(v int64) (restore func()) {
	prev := i.v.Swap(v)
	return func() { i.v.Store(prev) }
}

func (i *IntSetting) setToDefault() { i.v.Store(i.defaultValue) }

func (i *IntSetting) setFromSource(src Source) error {
	if !src.IsSet(i.key) {
		return nil
	}
	v, err := src.Int64(i.key)
	if err != nil {
		return errors.Wrapf(err, "setting %s", i.key)
	}
	if err := i.Validate(v); err != nil {
		return errors.Wrapf(err, "setting %s", i.key)
	}
	i.v.Store(v)
	return nil
}

// NonNegativeInt can be passed to RegisterIntSetting.
func NonNegativeInt(v int64) error {
	if v < 0 {
		return errors.Errorf("cannot set to a negative value: %d", v)
	}
	return nil
}

// PositiveInt can be passed to RegisterIntSetting.
func PositiveInt(v int64) error {
	if v < 1 {
		return errors.Errorf("cannot set to a non-positive value: %d", v)
	}
	return nil
}

// BoolSetting is the interface of a setting variable that will be updated
// automatically when the corresponding configuration source changes.
type BoolSetting struct {
	key          string
	defaultValue bool
	v            atomic.Bool
}

var _ Setting = &BoolSetting{}

// RegisterBoolSetting defines a new setting with type bool.
func RegisterBoolSetting(key, desc string, defaultValue bool) *BoolSetting {
	s := &BoolSetting{key: key, defaultValue: defaultValue}
	register(key, desc, s)
	return s
}

// Key implements the Setting interface.
func (b *BoolSetting) Key() string { return b.key }

// Typ implements the Setting interface.
func (*BoolSetting) Typ() string { return "b" }

// String implements the Setting interface.
func (b *BoolSetting) String() string { return strconv.FormatBool(b.Get()) }

// Get retrieves the bool value in the setting.
func (b *BoolSetting) Get() bool { return b.v.Load() }

// Override changes the setting and returns a function that restores the
// previous value. For use in tests.
func (b *BoolSetting) Override(v bool) (restore func()) {
	prev := b.v.Swap(v)
	return func() { b.v.Store(prev) }
}

func (b *BoolSetting) setToDefault() { b.v.Store(b.defaultValue) }

func (b *BoolSetting) setFromSource(src Source) error {
	if !src.IsSet(b.key) {
		return nil
	}
	v, err := src.Bool(b.key)
	if err != nil {
		return errors.Wrapf(err, "setting %s", b.key)
	}
	b.v.Store(v)
	return nil
}
