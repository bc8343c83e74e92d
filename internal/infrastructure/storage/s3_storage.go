// Package storage archives authorized vouchers in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const voucherContentType = "application/json"

// S3VoucherArchive stores one JSON document per authorized voucher.
// It works with AWS S3 and with compatible servers such as MinIO.
type S3VoucherArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// Option configures an S3VoucherArchive
type Option func(*S3VoucherArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3VoucherArchive) {
		s.logger = logger
	}
}

// NewS3VoucherArchive creates an archive from configuration
func NewS3VoucherArchive(cfg *config.StorageConfig, opts ...Option) (*S3VoucherArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	archive := &S3VoucherArchive{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	if archive.presignExpiration <= 0 {
		archive.presignExpiration = 15 * time.Minute
	}
	return archive, nil
}

// EnsureBucket creates the bucket if it does not exist yet
func (s *S3VoucherArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating voucher bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// VoucherDocument is the archived form of an authorized voucher
type VoucherDocument struct {
	SaleID            uuid.UUID          `json:"sale_id"`
	PointOfSale       int                `json:"point_of_sale"`
	VoucherType       fiscal.VoucherType `json:"voucher_type"`
	VoucherNumber     int64              `json:"voucher_number"`
	IssueDate         string             `json:"issue_date"`
	DocType           fiscal.DocType     `json:"doc_type"`
	DocNumber         int64              `json:"doc_number"`
	Net               decimal.Decimal    `json:"net"`
	Tax               decimal.Decimal    `json:"tax"`
	Total             decimal.Decimal    `json:"total"`
	VAT               []fiscal.VATLine   `json:"vat"`
	AuthorizationCode string             `json:"authorization_code"`
	AuthorizationExp  string             `json:"authorization_expiry"`
}

// VoucherKey is the object key for a voucher; the triple is unique per issuer
func VoucherKey(pointOfSale int, voucherType fiscal.VoucherType, number int64) string {
	return fmt.Sprintf("vouchers/%05d/%03d/%08d.json", pointOfSale, int(voucherType), number)
}

// Archive uploads the voucher document for an authorized request
func (s *S3VoucherArchive) Archive(ctx context.Context, saleID uuid.UUID, req fiscal.VoucherRequest, auth *fiscal.Authorization) error {
	if auth == nil {
		return errors.New("authorization is required")
	}

	doc := VoucherDocument{
		SaleID:            saleID,
		PointOfSale:       req.PointOfSale,
		VoucherType:       req.VoucherType,
		VoucherNumber:     req.Number,
		IssueDate:         req.IssueDate.Format(time.DateOnly),
		DocType:           req.DocType,
		DocNumber:         req.DocNumber,
		Net:               req.Net,
		Tax:               req.Tax,
		Total:             req.Total,
		VAT:               req.VAT,
		AuthorizationCode: auth.Code,
		AuthorizationExp:  auth.Expiry.Format(time.DateOnly),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal voucher document: %w", err)
	}

	key := VoucherKey(req.PointOfSale, req.VoucherType, req.Number)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(voucherContentType),
		Metadata: map[string]string{
			"sale-id": saleID.String(),
			"cae":     auth.Code,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload voucher %s: %w", key, err)
	}

	s.logger.Debug("Voucher archived", zap.String("key", key), zap.String("sale_id", saleID.String()))
	return nil
}

// DownloadURL returns a presigned GET URL for an archived voucher
func (s *S3VoucherArchive) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	presigned, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return presigned.URL, time.Now().Add(s.presignExpiration), nil
}

// VoucherURL presigns the archived document of one voucher
func (s *S3VoucherArchive) VoucherURL(ctx context.Context, pointOfSale int, voucherType fiscal.VoucherType, number int64) (string, time.Time, error) {
	return s.DownloadURL(ctx, VoucherKey(pointOfSale, voucherType, number))
}

// Bucket returns the bucket name
func (s *S3VoucherArchive) Bucket() string {
	return s.bucket
}
