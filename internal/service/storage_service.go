package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrStorageDisabled = errors.New("object storage is not configured")

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type StorageService interface {
	Upload(ctx context.Context, data []byte, contentType string) (url, key string, err error)
	UploadImage(ctx context.Context, data []byte) (*transfer.ImageUploadResponse, error)
	// OffloadAttachments returns a copy of content whose attachment bytes
	// were moved to object storage and replaced by public URLs.
	OffloadAttachments(ctx context.Context, content *models.PostContent) (*models.PostContent, error)
}

type storageService struct {
	cfg    config.Storage
	client objectPutter
}

func NewStorageService(ctx context.Context, cfg config.Storage) (StorageService, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, ErrStorageDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL(cfg))
		o.UsePathStyle = true
	})
	return &storageService{cfg: cfg, client: client}, nil
}

func endpointURL(cfg config.Storage) string {
	if strings.HasPrefix(cfg.Endpoint, "http://") || strings.HasPrefix(cfg.Endpoint, "https://") {
		return strings.TrimRight(cfg.Endpoint, "/")
	}
	if cfg.UseSSL {
		return "https://" + cfg.Endpoint
	}
	return "http://" + cfg.Endpoint
}

func (s *storageService) publicURL(key string) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + key
	}
	return fmt.Sprintf("%s/%s/%s", endpointURL(s.cfg), s.cfg.BucketName, key)
}

func (s *storageService) Upload(ctx context.Context, data []byte, contentType string) (string, string, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}
	key := "posts/" + id + extensionFor(data, contentType)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", "", fmt.Errorf("upload %s: %w", key, err)
	}

	return s.publicURL(key), key, nil
}

func (s *storageService) UploadImage(ctx context.Context, data []byte) (*transfer.ImageUploadResponse, error) {
	contentType, err := ValidateImage(data)
	if err != nil {
		return nil, err
	}
	url, key, err := s.Upload(ctx, data, contentType)
	if err != nil {
		return nil, err
	}
	return &transfer.ImageUploadResponse{URL: url, Key: key, ContentType: contentType, Size: len(data)}, nil
}

func (s *storageService) OffloadAttachments(ctx context.Context, content *models.PostContent) (*models.PostContent, error) {
	out := *content
	var err error
	if out.Images, err = s.offload(ctx, content.Images); err != nil {
		return nil, err
	}
	if out.Videos, err = s.offload(ctx, content.Videos); err != nil {
		return nil, err
	}
	if out.OtherFiles, err = s.offload(ctx, content.OtherFiles); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *storageService) offload(ctx context.Context, in []models.FileAttachment) ([]models.FileAttachment, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]models.FileAttachment, len(in))
	for i, a := range in {
		out[i] = a
		if len(a.Data) == 0 {
			continue
		}
		url, _, err := s.Upload(ctx, a.Data, a.MimeType)
		if err != nil {
			return nil, err
		}
		out[i].URL = url
		out[i].Data = nil
	}
	return out, nil
}
