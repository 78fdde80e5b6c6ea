package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	appconfig "github.com/lvt17/planex-be/config"
	"github.com/lvt17/planex-be/services"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxImageBytes caps avatar and chat image uploads.
const MaxImageBytes = 5 << 20

// ErrStorageDisabled is returned when no bucket is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// getS3Client returns a client for S3 or any S3-compatible store (R2, MinIO)
func getS3Client(ctx context.Context, cfg *appconfig.Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		),
	)
	if err != nil {
		return nil, services.Integration("storage config", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}

// UploadToS3 stores the object and returns its public URL.
func UploadToS3(ctx context.Context, objectName string, file io.Reader) (string, error) {
	cfg := appconfig.Get()
	if !cfg.StorageEnabled() {
		return "", ErrStorageDisabled
	}
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return "", err
	}

	contentType := mime.TypeByExtension(path.Ext(objectName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(cfg.S3Bucket),
		Key:         aws.String(objectName),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", services.Integration("storage upload", err)
	}
	return publicURL(cfg, objectName), nil
}

func publicURL(cfg *appconfig.Config, objectName string) string {
	if cfg.S3PublicURL != "" {
		return cfg.S3PublicURL + "/" + objectName
	}
	if cfg.S3Endpoint != "" {
		return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket + "/" + objectName
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.S3Bucket, cfg.S3Region, objectName)
}

// ImageObjectName validates an image filename and returns a unique key under prefix.
func ImageObjectName(prefix, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExts[ext] {
		return "", services.Invalid("image must be JPG, PNG, GIF, WEBP, HEIC or HEIF")
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, time.Now().UTC().Format("2006/01"), uuid.NewString(), ext), nil
}

// UploadImage validates a multipart image and uploads it under prefix.
func UploadImage(ctx context.Context, prefix string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxImageBytes {
		return "", services.Invalid("image must be at most 5MB")
	}
	key, err := ImageObjectName(prefix, header.Filename)
	if err != nil {
		return "", err
	}
	return UploadToS3(ctx, key, file)
}

// DeleteFromS3 deletes an object; used when an upload is replaced.
func DeleteFromS3(ctx context.Context, objectName string) error {
	cfg := appconfig.Get()
	if !cfg.StorageEnabled() {
		return ErrStorageDisabled
	}
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(cfg.S3Bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return services.Integration("storage delete", err)
	}
	return nil
}

// ObjectKeyFromURL reverses publicURL so replaced uploads can be removed.
func ObjectKeyFromURL(url string) (string, bool) {
	cfg := appconfig.Get()
	prefix := strings.TrimSuffix(publicURL(cfg, "x"), "x")
	if cfg.S3Bucket == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
