package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/depthpose/rimage/transform"
)

// Read reads a config from the given file. Environment variables referenced as $VAR or
// ${VAR} are expanded before parsing.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %s", originalPath)
	}
	if cfg.IntrinsicsFile != "" {
		path := cfg.IntrinsicsFile
		if !filepath.IsAbs(path) && originalPath != "" {
			path = filepath.Join(filepath.Dir(originalPath), path)
		}
		intrinsics, err := transform.NewScaleCameraIntrinsicsFromJSONFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "cannot load intrinsics_file")
		}
		cfg.ScaleCameraIntrinsics = *intrinsics
	}
	cfg.applyDefaults()
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return cfg, nil
}
