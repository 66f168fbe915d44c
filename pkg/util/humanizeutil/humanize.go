// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package humanizeutil

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
)

// Count formats an element count with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Rate formats the throughput of processing n elements in d, using SI
// prefixes, e.g. "12 M/s".
func Rate(n int64, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return humanize.SIWithDigits(float64(n)/d.Seconds(), 1, "/s")
}

// ParseCount parses an element count that may use SI prefixes, e.g. "10k"
// or "2.5M".
func ParseCount(s string) (int64, error) {
	if len(s) == 0 {
		return 0, errors.Newf("parsing %q: invalid syntax", s)
	}
	v, unit, err := humanize.ParseSI(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %q", s)
	}
	if unit != "" {
		return 0, errors.Newf("parsing %q: unexpected unit %q", s, unit)
	}
	if v < 0 || v > math.MaxInt64 || v != math.Trunc(v) {
		return 0, errors.Newf("parsing %q: not a valid count", s)
	}
	return int64(v), nil
}

// CountValue implements pflag.Value for flags accepting counts in the format
// recognized by ParseCount.
type CountValue struct {
	val   *int64
	isSet bool
}

var _ pflag.Value = &CountValue{}

// NewCountValue creates a new pflag.Value bound to the specified int64
// variable.
func NewCountValue(val *int64) *CountValue {
	return &CountValue{val: val}
}

// Set implements the pflag.Value interface.
func (c *CountValue) Set(s string) error {
	v, err := ParseCount(s)
	if err != nil {
		return err
	}
	*c.val = v
	c.isSet = true
	return nil
}

// Type implements the pflag.Value interface.
func (c *CountValue) Type() string {
	return "count"
}

// String implements the pflag.Value interface.
func (c *CountValue) String() string {
	if c.val == nil {
		return "0"
	}
	return humanize.SI(float64(*c.val), "")
}

// IsSet returns true iff Set has successfully been called.
func (c *CountValue) IsSet() bool {
	return c.isSet
}
