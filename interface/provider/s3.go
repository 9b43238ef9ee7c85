package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/airbusgeo/geodata-ingester/service"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Fetcher downloads s3://bucket/key urls
type S3Fetcher struct {
	region          string
	accessKeyId     string
	secretAccessKey string
	requesterPays   bool

	once       sync.Once
	downloader *manager.Downloader
	err        error
}

// NewS3Fetcher creates a fetcher. Without access key, the default credential chain is used.
func NewS3Fetcher(region, accessKeyId, secretAccessKey string, requesterPays bool) *S3Fetcher {
	return &S3Fetcher{region: region, accessKeyId: accessKeyId, secretAccessKey: secretAccessKey, requesterPays: requesterPays}
}

// Name implements Fetcher
func (f *S3Fetcher) Name() string {
	return "S3"
}

func (f *S3Fetcher) s3Downloader(ctx context.Context) (*manager.Downloader, error) {
	f.once.Do(func() {
		opts := []func(*config.LoadOptions) error{}
		if f.region != "" {
			opts = append(opts, config.WithRegion(f.region))
		}
		if f.accessKeyId != "" {
			opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(f.accessKeyId, f.secretAccessKey, "")))
		}
		cfg, err := config.LoadDefaultConfig(context.WithoutCancel(ctx), opts...)
		if err != nil {
			f.err = fmt.Errorf("config.LoadDefaultConfig: %w", err)
			return
		}
		// Create an Amazon S3 service client
		client := s3.NewFromConfig(cfg)
		f.downloader = manager.NewDownloader(client, func(d *manager.Downloader) {
			d.PartSize = 10 * 1024 * 1024 // 10MB per part
		})
	})
	return f.downloader, f.err
}

func parseS3(url string) (string, string, error) {
	if !strings.HasPrefix(url, "s3://") {
		return "", "", fmt.Errorf("not a s3 url: %s", url)
	}
	splits := strings.SplitN(strings.TrimPrefix(url, "s3://"), "/", 2)
	if len(splits) != 2 || splits[0] == "" || splits[1] == "" {
		return "", "", fmt.Errorf("missing bucket or key: %s", url)
	}
	return splits[0], splits[1], nil
}

// Fetch implements Fetcher
func (f *S3Fetcher) Fetch(ctx context.Context, url, localFile string) (int64, error) {
	bucket, key, err := parseS3(url)
	if err != nil {
		return 0, fmt.Errorf("S3Fetcher: %w", err)
	}
	downloader, err := f.s3Downloader(ctx)
	if err != nil {
		return 0, fmt.Errorf("S3Fetcher.%w", err)
	}

	file, err := os.Create(localFile)
	if err != nil {
		return 0, fmt.Errorf("S3Fetcher: failed to create file %s: %w", localFile, err)
	}
	defer file.Close()

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if f.requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}
	n, err := downloader.Download(ctx, file, input)
	if err != nil {
		os.Remove(localFile)
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return 0, fmt.Errorf("S3Fetcher: %w", service.ErrFileNotFound{File: url})
		}
		return 0, service.MakeTemporary(fmt.Errorf("S3Fetcher: failed to download object %s:%s: %w", bucket, key, err))
	}
	return n, nil
}
