// Package config defines the structures to configure dataset preparation, evaluation and
// refinement runs.
package config

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/depthpose/dataset"
	"go.viam.com/depthpose/ief"
	"go.viam.com/depthpose/rimage/transform"
)

// Defaults applied to unset fields.
const (
	DefaultBatchSize = 60
	DefaultImageSize = 224
)

// Config describes a dataset and how to run the pipeline over it.
type Config struct {
	DataRoot string        `json:"data_root"`
	View     string        `json:"view"`
	Units    dataset.Units `json:"units,omitempty"`

	transform.ScaleCameraIntrinsics
	// IntrinsicsFile, when set, replaces the inline intrinsics with the ones in that JSON
	// file. Relative paths are resolved against the config file's directory.
	IntrinsicsFile string `json:"intrinsics_file,omitempty"`

	CorrectionLimit     float64 `json:"correction_limit,omitempty"`
	UnboundedCorrection bool    `json:"unbounded_correction,omitempty"`
	BatchSize           int     `json:"batch_size,omitempty"`

	LogFile string `json:"log_file,omitempty"`
	Debug   bool   `json:"debug,omitempty"`
}

// Default returns a configuration for the top view of an ITOP dataset stored under root.
func Default(root string) *Config {
	cfg := &Config{DataRoot: root, View: dataset.ViewTop}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Units == "" {
		cfg.Units = dataset.UnitsMeters
	}
	if cfg.Width == 0 {
		cfg.Width = DefaultImageSize
	}
	if cfg.Height == 0 {
		cfg.Height = DefaultImageSize
	}
	if cfg.C == 0 {
		cfg.C = transform.ITOPCalibration
	}
	if cfg.CorrectionLimit == 0 {
		cfg.CorrectionLimit = ief.DefaultCorrectionLimit
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.DataRoot == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "data_root")
	}
	if cfg.View == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "view")
	}
	if err := dataset.CheckView(cfg.View); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if err := cfg.Units.Validate(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if err := cfg.ScaleCameraIntrinsics.CheckValid(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cfg.CorrectionLimit < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("correction_limit must not be negative, got %v", cfg.CorrectionLimit))
	}
	if cfg.BatchSize < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("batch_size must be positive, got %d", cfg.BatchSize))
	}
	return nil
}

// Intrinsics returns the camera model of the prepared frames.
func (cfg *Config) Intrinsics() *transform.ScaleCameraIntrinsics {
	intrinsics := cfg.ScaleCameraIntrinsics
	return &intrinsics
}

// Limit returns the correction limit to apply, ief.NoLimit when corrections are unbounded.
func (cfg *Config) Limit() float64 {
	if cfg.UnboundedCorrection {
		return ief.NoLimit
	}
	return cfg.CorrectionLimit
}
