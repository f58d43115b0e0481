package catalog

import (
	"time"

	"github.com/driveos/filecore/internal/bytesize"
)

// Config contains catalog policy limits.
type Config struct {
	// MaxVersionsPerFile is the number of historical versions retained
	// per file. Older versions beyond this count are pruned after each
	// upload. Default: 10.
	MaxVersionsPerFile int `mapstructure:"max_versions_per_file" validate:"omitempty,min=1" yaml:"max_versions_per_file"`

	// VersionRetentionDays bounds the age of retained versions. Versions
	// older than this are pruned even when under the count limit, except
	// the version matching the file's live content. Default: 30.
	VersionRetentionDays int `mapstructure:"version_retention_days" validate:"omitempty,min=1" yaml:"version_retention_days"`

	// MaxSharesPerFile caps active shares per file. Default: 50.
	MaxSharesPerFile int `mapstructure:"max_shares_per_file" validate:"omitempty,min=1" yaml:"max_shares_per_file"`

	// DefaultShareExpiryDays is the expiry applied to shares created
	// without an explicit expiration. Default: 30.
	DefaultShareExpiryDays int `mapstructure:"default_share_expiry_days" validate:"omitempty,min=1" yaml:"default_share_expiry_days"`

	// ShareSweepInterval is how often expired shares are swept from the
	// database. Default: 1h.
	ShareSweepInterval time.Duration `mapstructure:"share_sweep_interval" yaml:"share_sweep_interval"`

	// MaxFileSize rejects uploads larger than this before the quota
	// service is consulted. Zero means no limit. Default: 5Gi.
	MaxFileSize bytesize.ByteSize `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// ApplyDefaults fills in zero values with catalog defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxVersionsPerFile == 0 {
		c.MaxVersionsPerFile = 10
	}
	if c.VersionRetentionDays == 0 {
		c.VersionRetentionDays = 30
	}
	if c.MaxSharesPerFile == 0 {
		c.MaxSharesPerFile = 50
	}
	if c.DefaultShareExpiryDays == 0 {
		c.DefaultShareExpiryDays = 30
	}
	if c.ShareSweepInterval == 0 {
		c.ShareSweepInterval = time.Hour
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = 5 * bytesize.GiB
	}
}
