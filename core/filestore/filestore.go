// Package filestore stores painting images outside of the database.
// There are two drivers: a local filesystem and AWS S3.
package filestore

import (
	"context"
	"io"
)

// Driver is the interface image storage backends implement.
type Driver interface {
	// Save stores the object under key and returns the public path or URL
	// it will be served from.
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// DriverType represents the different types of filestore drivers
type DriverType string

// DriverTypeLocal is the local filesystem implementation
const DriverTypeLocal DriverType = "Local"

// DriverTypeAWSS3 is the AWS S3 implementation
const DriverTypeAWSS3 DriverType = "AWSS3"

// None is used when there is no filestore configured
const None DriverType = ""

// Configuration contains the configuration for the filestore
type Configuration struct {
	DriverType         DriverType
	LocalConfiguration *LocalConfiguration
	S3Configuration    *S3Configuration
}

// LocalConfiguration contains the configuration for the local filesystem driver
type LocalConfiguration struct {
	// BasePath is the directory files are stored in.
	BasePath string
	// PublicPrefix is the URL path prefix files are served from.
	PublicPrefix string
}

// S3Configuration contains the configuration for the S3 driver
type S3Configuration struct {
	AWSRegion     string
	AccessID      string
	AccessKey     string
	AWSBucketName string
	KeyPrefix     string
	// PublicURL is the base URL objects are reachable under.
	PublicURL string
}
