package filestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/galerie-tech/galerie/core/logger"
)

// S3 is the AWS S3 implementation of the filestore driver
type S3 struct {
	config    aws.Config
	bucket    string
	keyPrefix string
	publicURL string
}

// NewS3 returns a new S3 driver
func NewS3(s3Config S3Configuration) (*S3, error) {
	if s3Config.AWSBucketName == "" {
		return nil, fmt.Errorf("AWSBucketName must not be empty")
	}

	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion(s3Config.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3Config.AccessID, s3Config.AccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	logger.Default().Debugln("filestore S3 enabled")
	return &S3{
		config:    cfg,
		bucket:    s3Config.AWSBucketName,
		keyPrefix: s3Config.KeyPrefix,
		publicURL: strings.TrimSuffix(s3Config.PublicURL, "/"),
	}, nil
}

// Save uploads the object and returns its public URL.
func (s S3) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	client := s3.NewFromConfig(s.config)
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyPrefix + key),
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file, %v", err)
	}
	return s.publicURL + "/" + s.keyPrefix + key, nil
}

// Delete deletes the key's object
func (s S3) Delete(ctx context.Context, key string) error {
	logger.Default().Infoln("deleting", s.keyPrefix+key)
	client := s3.NewFromConfig(s.config)
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyPrefix + key),
	})
	return err
}
