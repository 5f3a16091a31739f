package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// S3Config holds configuration for S3 checkpoint storage
type S3Config struct {
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Endpoint        string `json:"endpoint,omitempty"`
	ForcePathStyle  bool   `json:"force_path_style"`
	Prefix          string `json:"prefix"`
}

// S3Storage implements durable checkpoint storage on S3
type S3Storage struct {
	config     *S3Config
	client     *awss3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	logger     *logrus.Logger
}

// NewS3Storage creates S3-backed checkpoint storage
func NewS3Storage(config *S3Config, logger *logrus.Logger) (*S3Storage, error) {
	if config == nil {
		return nil, errors.NewStorageError("INVALID_CONFIG", "S3 config cannot be nil")
	}
	if config.Bucket == "" {
		return nil, errors.NewStorageError("INVALID_CONFIG", "S3 bucket is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if config.Prefix == "" {
		config.Prefix = constants.DefaultCheckpointPrefix
	}

	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(config.ForcePathStyle),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}
	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "SESSION_FAILED", "failed to create AWS session")
	}

	return &S3Storage{
		config:     config,
		client:     awss3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
		logger:     logger,
	}, nil
}

func (s *S3Storage) key(id string) string {
	return path.Join(s.config.Prefix, id+".json")
}

// Save stores a checkpoint under its ID
func (s *S3Storage) Save(ctx context.Context, cp *models.Checkpoint) error {
	if cp == nil || cp.ID == "" {
		return errors.NewValidationError("INVALID_CHECKPOINT", "checkpoint must have an ID")
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "MARSHAL_FAILED", "failed to encode checkpoint")
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(s.key(cp.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]*string{
			"model-id":   aws.String(cp.ModelID),
			"created-at": aws.String(cp.CreatedAt.Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "UPLOAD_FAILED", "failed to upload checkpoint").
			WithContext("checkpoint_id", cp.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"checkpoint_id": cp.ID,
		"bucket":        s.config.Bucket,
		"bytes":         len(data),
	}).Debug("Checkpoint uploaded")
	return nil
}

// Load retrieves a checkpoint by ID
func (s *S3Storage) Load(ctx context.Context, id string) (*models.Checkpoint, error) {
	buf := aws.NewWriteAtBuffer(nil)
	_, err := s.downloader.DownloadWithContext(ctx, buf, &awss3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == awss3.ErrCodeNoSuchKey {
			return nil, errors.NewStorageError("CHECKPOINT_NOT_FOUND", "checkpoint not found").
				WithContext("checkpoint_id", id)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "DOWNLOAD_FAILED", "failed to download checkpoint")
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(buf.Bytes(), &cp); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "UNMARSHAL_FAILED", "failed to decode checkpoint")
	}
	return &cp, nil
}

// List returns checkpoint IDs for a model, newest first
func (s *S3Storage) List(ctx context.Context, modelID string) ([]string, error) {
	type candidate struct {
		id      string
		created time.Time
	}
	var found []candidate

	err := s.client.ListObjectsV2PagesWithContext(ctx, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(s.config.Prefix + "/"),
	}, func(page *awss3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			id := strings.TrimSuffix(path.Base(aws.StringValue(obj.Key)), ".json")
			cp, err := s.Load(ctx, id)
			if err != nil || cp.ModelID != modelID {
				continue
			}
			found = append(found, candidate{id: id, created: cp.CreatedAt})
		}
		return true
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "LIST_FAILED", "failed to list checkpoints")
	}

	sort.Slice(found, func(i, j int) bool { return found[i].created.After(found[j].created) })
	ids := make([]string, len(found))
	for i, c := range found {
		ids[i] = c.id
	}
	return ids, nil
}

// Delete removes a checkpoint by ID
func (s *S3Storage) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "DELETE_FAILED", "failed to delete checkpoint").
			WithContext("checkpoint_id", id)
	}
	return nil
}

// Close is a no-op; the AWS session carries no persistent connection
func (s *S3Storage) Close() error {
	return nil
}
