package media

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/content"
	"github.com/pulsiveblog/pulsive/internal/model"
)

type S3Store struct { // implements Store
	client *s3.Client
	bucket string
}

func NewS3Store(accessKeyID, accessKeySecret, baseEndpoint, bucket string) *S3Store {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		mediaLogger.Fatal().Err(err).Msg("Error initializing S3 client")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
	})

	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Upload(ctx context.Context, owner model.UserID, filename, payload string) (string, error) {
	if filename == "" {
		return "", apperr.New(apperr.KindValidation, "filename is required")
	}

	raw, err := content.DecodePayload(payload, config.AppConfig.Content.MaxUploadBytes)
	if err != nil {
		return "", err
	}

	key := content.MediaPath(time.Now().UTC(), filename)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(string(owner) + "/" + key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(contentType(payload, filename)),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstreamUnavailable, "uploading "+filename, err)
	}

	mediaLogger.Info().Str("bucket", s.bucket).Str("key", key).Msg("Media uploaded")
	return string(owner) + "/" + key, nil
}
