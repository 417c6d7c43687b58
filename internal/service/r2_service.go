package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/teampost/configs"
	"github.com/rs/zerolog/log"
)

// ObjectStorage keeps uploaded post images and returns their public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type R2Service struct {
	config cfg.R2
	client *s3.Client
}

func NewR2Service(ctx context.Context, r2 cfg.R2) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		log.Error().Err(err).Msg("load r2 config")
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})

	return &R2Service{config: r2, client: client}, nil
}

// Upload puts the object into the bucket and returns its URL on the public domain.
func (r *R2Service) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		log.Error().Err(err).Str("key", key).Msg("upload to r2")
		return "", err
	}

	return fmt.Sprintf("%s/%s", strings.TrimRight(r.config.PublicURL, "/"), key), nil
}
