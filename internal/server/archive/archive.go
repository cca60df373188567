// Package archive stores the statement of every closed vault lifecycle in
// S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/alarmlock/internal/server/models"
	"github.com/klauspost/compress/zstd"
)

type Archiver interface {
	Archive(ctx context.Context, st *models.Statement) error
}

// NopArchiver discards statements.
type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, *models.Statement) error { return nil }

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Options struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

type S3Archiver struct {
	client putObjectAPI
	bucket string
}

func NewS3Archiver(ctx context.Context, o S3Options) (*S3Archiver, error) {
	if o.Bucket == "" {
		return nil, fmt.Errorf("s3 archiver requires a bucket")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		// MinIO and most self-hosted stores only serve path-style requests.
		opts.UsePathStyle = true
	})

	return &S3Archiver{client: client, bucket: o.Bucket}, nil
}

// Key returns the object key of a statement.
func Key(st *models.Statement) string {
	return fmt.Sprintf("statements/%s/%s.json.zst", st.Vault, st.LifecycleID)
}

// Encode renders st as zstd-compressed JSON, the stored object format.
func Encode(st *models.Statement) ([]byte, error) {
	body, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode statement: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	return enc.EncodeAll(body, make([]byte, 0, len(body)/2)), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*models.Statement, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	body, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress statement: %w", err)
	}

	var st models.Statement
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode statement: %w", err)
	}
	return &st, nil
}

func (a *S3Archiver) Archive(ctx context.Context, st *models.Statement) error {
	body, err := Encode(st)
	if err != nil {
		return err
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(st)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return fmt.Errorf("put statement: %w", err)
	}

	return nil
}
