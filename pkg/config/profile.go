// Package config loads correction profiles. Values are layered: identity
// defaults for the pixel format, then an optional YAML profile, then MACS_*
// environment variables. Nested keys use a double underscore in the
// environment, e.g. MACS_STRETCH__GAMMA=2.2 or MACS_COLOR_BALANCE__R=1.4.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/jpfielding/macs.go/pkg/macs"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	yml "gopkg.in/yaml.v2"
)

// EnvPrefix marks environment variables that override profile values.
const EnvPrefix = "MACS_"

// Load resolves the correction options for format from the profile at path.
// An empty path skips the file layer.
func Load(path string, format macs.PixelFormat) (macs.CorrectionOptions, error) {
	var opts macs.CorrectionOptions
	k := koanf.New(".")
	if err := k.Load(structs.Provider(macs.IdentityOptions(format), "koanf"), nil); err != nil {
		return opts, fmt.Errorf("loading defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return opts, fmt.Errorf("loading profile %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return opts, fmt.Errorf("loading environment: %w", err)
	}
	if err := k.Unmarshal("", &opts); err != nil {
		return opts, fmt.Errorf("decoding profile: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// envKey maps MACS_STRETCH__GAMMA to stretch.gamma.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// Marshal renders opts as a YAML profile that Load accepts.
func Marshal(opts macs.CorrectionOptions) ([]byte, error) {
	return yml.Marshal(opts)
}

// Write is Marshal to a stream.
func Write(w io.Writer, opts macs.CorrectionOptions) error {
	enc := yml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(opts)
}
