package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

// S3Config holds configuration for the S3 landing zone.
type S3Config struct {
	Region          string        `json:"region"`
	Bucket          string        `json:"bucket"`
	AccessKeyID     string        `json:"access_key_id"`
	SecretAccessKey string        `json:"secret_access_key"`
	SessionToken    string        `json:"session_token,omitempty"`
	Endpoint        string        `json:"endpoint,omitempty"`
	ForcePathStyle  bool          `json:"force_path_style"`
	DisableSSL      bool          `json:"disable_ssl"`
	Timeout         time.Duration `json:"timeout"`
	MaxRetries      int           `json:"max_retries"`
}

// S3Source fetches CSV objects from an S3 landing bucket. Paths are either
// bare object keys (resolved against the configured bucket) or full
// s3://bucket/key URIs.
type S3Source struct {
	config     *S3Config
	s3Client   *s3.S3
	downloader *s3manager.Downloader
	logger     *logrus.Logger
	mu         sync.Mutex
}

func NewS3Source(config *S3Config, logger *logrus.Logger) (*S3Source, error) {
	if config == nil {
		return nil, apperrors.NewSourceError("INVALID_CONFIG", "S3 config cannot be nil")
	}
	if config.Region == "" {
		return nil, apperrors.NewSourceError("INVALID_CONFIG", "S3 region is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &S3Source{config: config, logger: logger}, nil
}

// Connect creates the AWS session and verifies bucket access.
func (s *S3Source) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3Client != nil {
		return nil
	}

	awsConfig := &aws.Config{
		Region:     aws.String(s.config.Region),
		MaxRetries: aws.Int(s.config.MaxRetries),
	}
	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			s.config.SessionToken,
		)
	}
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}
	if s.config.DisableSSL {
		awsConfig.DisableSSL = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeSource,
			apperrors.CodeConnectionFailed, "failed to create AWS session")
	}
	s.s3Client = s3.New(sess)
	s.downloader = s3manager.NewDownloader(sess)

	if s.config.Bucket != "" {
		_, err = s.s3Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(s.config.Bucket),
		})
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrorTypeSource,
				apperrors.CodeConnectionFailed,
				fmt.Sprintf("failed to access bucket '%s'", s.config.Bucket))
		}
	}

	s.logger.WithFields(logrus.Fields{
		"region": s.config.Region,
		"bucket": s.config.Bucket,
	}).Info("Connected to S3")
	return nil
}

func (s *S3Source) Fetch(ctx context.Context, path string, limit int) (*models.RecordSet, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	bucket, key, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	buf := aws.NewWriteAtBuffer(nil)
	_, err = s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeSource,
			apperrors.CodeSourceUnreadable,
			fmt.Sprintf("failed to download s3://%s/%s", bucket, key))
	}

	rs, err := parseCSV(bytes.NewReader(buf.Bytes()), path, limit)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"bucket": bucket,
		"key":    key,
		"rows":   rs.TotalRows,
	}).Info("S3 source read")
	return rs, nil
}

// resolve splits a path into bucket and key, falling back to the configured
// bucket for bare keys.
func (s *S3Source) resolve(path string) (bucket, key string, err error) {
	if strings.HasPrefix(path, "s3://") {
		rest := strings.TrimPrefix(path, "s3://")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", apperrors.NewSourceError(apperrors.CodeSourceUnreadable,
				fmt.Sprintf("invalid S3 URI %q", path))
		}
		return parts[0], parts[1], nil
	}
	if s.config.Bucket == "" {
		return "", "", apperrors.NewSourceError(apperrors.CodeSourceUnreadable,
			"no bucket configured and path is not an s3:// URI")
	}
	return s.config.Bucket, strings.TrimPrefix(path, "/"), nil
}

func (s *S3Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s3Client = nil
	s.downloader = nil
	return nil
}
