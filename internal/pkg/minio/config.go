package minio

import (
	"errors"
)

// BucketLookupType represents the type of bucket lookup
type BucketLookupType string

const (
	BucketLookupAuto BucketLookupType = "auto"
	BucketLookupDNS  BucketLookupType = "dns"  // bucket.endpoint
	BucketLookupPath BucketLookupType = "path" // endpoint/bucket
)

// Config is the object storage configuration used for attachments.
type Config struct {
	// Endpoint is the S3-compatible endpoint, e.g. "localhost:9000".
	Endpoint        string           `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string           `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string           `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string           `mapstructure:"session_token" yaml:"session_token"`
	Region          string           `mapstructure:"region" yaml:"region"`
	UseSSL          bool             `mapstructure:"use_ssl" yaml:"use_ssl"`
	BucketLookup    BucketLookupType `mapstructure:"bucket_lookup" yaml:"bucket_lookup"`

	// Bucket and Prefix locate attachment objects.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	switch c.BucketLookup {
	case "", BucketLookupAuto, BucketLookupDNS, BucketLookupPath:
	default:
		return errors.New("minio: invalid bucket lookup type")
	}
	return nil
}

// SetDefaults sets default values for unspecified fields
func (c *Config) SetDefaults() {
	if c.BucketLookup == "" {
		c.BucketLookup = BucketLookupAuto
	}
}
