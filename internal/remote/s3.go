package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xRadioAc7iv/go-aletheia/internal"
)

const defaultRegion = "us-east-1"

type S3Backend struct {
	// objectPrefix is prepended to every key. For example, with the prefix
	// "aletheia/" the archive of "Celeste" is stored as
	// "aletheia/Celeste/backup.aletheia".
	objectPrefix       string
	bucketName         string
	endpointWithScheme string
	client             *s3.Client
}

func newS3Backend(ctx context.Context, cfg internal.RemoteConfig) (*S3Backend, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("invalid S3 configuration: missing 'bucket_name'")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "s3.amazonaws.com"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	endpointWithScheme := fmt.Sprintf("%s://%s", cfg.Scheme, cfg.Endpoint)

	s3AWSConfig, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load default AWS config")
	}

	client := s3.NewFromConfig(s3AWSConfig, func(o *s3.Options) {
		o.BaseEndpoint = &endpointWithScheme
		o.Region = cfg.Region
		o.UsePathStyle = true
		// S3-compatible stores such as MinIO do not all speak the newer
		// flexible checksum headers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		if len(cfg.AccessKeySecret) > 0 && len(cfg.AccessKeyID) > 0 {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, "")
		}
	})

	return &S3Backend{
		objectPrefix:       cfg.ObjectPrefix,
		bucketName:         cfg.BucketName,
		endpointWithScheme: endpointWithScheme,
		client:             client,
	}, nil
}

func (b *S3Backend) Push(ctx context.Context, key, path string) error {
	objectKey := b.objectKey(key)
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat archive")
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucketName),
		Key:           aws.String(objectKey),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return errors.Wrap(err, "upload archive to s3 backend")
	}

	logrus.Debugf("uploaded %s to s3 backend, costs %s", objectKey, time.Since(start))

	return nil
}

func (b *S3Backend) Pull(ctx context.Context, key, dest string) (bool, error) {
	objectKey := b.objectKey(key)

	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucketName,
		Key:    &objectKey,
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "download archive from s3 backend")
	}
	defer output.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, errors.Wrap(err, "create archive dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pull-*")
	if err != nil {
		return false, errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, output.Body); err != nil {
		tmp.Close()
		return false, errors.Wrap(err, "write downloaded archive")
	}
	if err := tmp.Close(); err != nil {
		return false, errors.Wrap(err, "close downloaded archive")
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return false, errors.Wrap(err, "move downloaded archive")
	}

	return true, nil
}

func (b *S3Backend) objectKey(key string) string {
	return b.objectPrefix + key
}

func isNotFound(err error) bool {
	var responseError *awshttp.ResponseError
	if errors.As(err, &responseError) && responseError.ResponseError.HTTPStatusCode() == http.StatusNotFound {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
