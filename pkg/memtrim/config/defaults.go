// Package config provides configuration management for the memtrim memory
// monitor.
package config

// Default configuration values for memtrim.
const (
	// DefaultStartThresholdMB triggers an auto-clean when used memory
	// reaches it.
	DefaultStartThresholdMB = 4096

	// DefaultStopThresholdMB re-arms the policy once used memory drops
	// back to it. Must stay strictly below the start threshold.
	DefaultStopThresholdMB = 2048

	// MinStartThresholdMB / MaxStartThresholdMB bound the start threshold.
	MinStartThresholdMB = 512
	MaxStartThresholdMB = 8192

	// MinStopThresholdMB / MaxStopThresholdMB bound the stop threshold.
	MinStopThresholdMB = 256
	MaxStopThresholdMB = 4096

	// DefaultPollIntervalSeconds is the monitor tick cadence.
	DefaultPollIntervalSeconds = 30

	// DefaultTempMinAgeHours is how old a temp file must be before the
	// temp cleaner will remove it.
	DefaultTempMinAgeHours = 24

	// DefaultJournalMaxEntries bounds the clean-result journal.
	DefaultJournalMaxEntries = 200
)
