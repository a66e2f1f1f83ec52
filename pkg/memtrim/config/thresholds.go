package config

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrInvalidThresholds is returned when a threshold update fails
// validation. The prior configuration is always left untouched.
var ErrInvalidThresholds = errors.New("invalid threshold configuration")

// ThresholdsConfig holds the auto-clean thresholds. The invariant
// StopMB < StartMB is what creates the hysteresis dead zone; updates that
// would violate it are rejected, never clamped.
type ThresholdsConfig struct {
	StartMB   int64 `mapstructure:"start_mb" json:"start_mb"`
	StopMB    int64 `mapstructure:"stop_mb" json:"stop_mb"`
	AutoClean bool  `mapstructure:"auto_clean" json:"auto_clean"`
}

// Validate checks threshold ranges and ordering.
func (t ThresholdsConfig) Validate() error {
	err := validation.ValidateStruct(&t,
		validation.Field(&t.StartMB,
			validation.Required,
			validation.Min(int64(MinStartThresholdMB)),
			validation.Max(int64(MaxStartThresholdMB)),
		),
		validation.Field(&t.StopMB,
			validation.Required,
			validation.Min(int64(MinStopThresholdMB)),
			validation.Max(int64(MaxStopThresholdMB)),
			validation.By(t.stopBelowStart),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	return nil
}

// stopBelowStart enforces the hysteresis ordering invariant.
func (t ThresholdsConfig) stopBelowStart(interface{}) error {
	if t.StopMB >= t.StartMB {
		return fmt.Errorf("stop_mb (%d) must be strictly below start_mb (%d)", t.StopMB, t.StartMB)
	}
	return nil
}
