// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package settings

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Source is where setting overrides are read from.
type Source interface {
	IsSet(key string) bool
	Int64(key string) (int64, error)
	Bool(key string) (bool, error)
}

// NewViper returns a viper instance that resolves a setting such as
// "pquery.chunk_size" from the environment variable PQUERY_CHUNK_SIZE, or from
// a config file when one is configured on the returned instance.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

type viperSource struct {
	v *viper.Viper
}

func (s viperSource) IsSet(key string) bool { return s.v.IsSet(key) }

func (s viperSource) Int64(key string) (int64, error) {
	return cast.ToInt64E(s.v.Get(key))
}

func (s viperSource) Bool(key string) (bool, error) {
	return cast.ToBoolE(s.v.Get(key))
}

// LoadFromViper applies every override found in v to the registered
// settings. All settings are attempted; the returned error combines every
// failure.
func LoadFromViper(v *viper.Viper) error {
	src := viperSource{v: v}
	var retErr error
	for _, key := range Keys() {
		s, _, _ := Lookup(key)
		if err := s.setFromSource(src); err != nil {
			retErr = errors.CombineErrors(retErr, err)
		}
	}
	return retErr
}
