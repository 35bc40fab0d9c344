package provider

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ensure interface is implemented
var _ ObjectStore = (*S3Store)(nil)

// S3Store implements ObjectStore on Amazon S3 or an S3-compatible service.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Store creates an S3-backed object store using the default AWS
// credential chain.
func NewS3Store(ctx context.Context) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// NewS3StoreFromClient wraps an existing client, mainly for tests.
func NewS3StoreFromClient(client *s3.Client) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// Upload streams body into bucket/key via the multipart upload manager.
func (p *S3Store) Upload(ctx context.Context, bucket, key string, body io.Reader, mimeType string, gzipEnabled bool) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
	}

	if gzipEnabled {
		input.ContentEncoding = aws.String("gzip")

		pr, pw := io.Pipe()
		go func() {
			gz := gzip.NewWriter(pw)
			if _, err := io.Copy(gz, body); err != nil {
				pw.CloseWithError(err)
				return
			}
			pw.CloseWithError(gz.Close())
		}()
		input.Body = pr
		// Unblock the compressor if the upload aborts before draining
		// the pipe.
		defer pr.Close()
	} else {
		input.Body = body
	}

	if _, err := p.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3 upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// UploadFile uploads a local file to bucket/key.
func (p *S3Store) UploadFile(ctx context.Context, bucket, key, localPath, mimeType string, gzipEnabled bool) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", localPath, err)
	}
	defer f.Close()

	return p.Upload(ctx, bucket, key, f, mimeType, gzipEnabled)
}

// OpenWriteStream opens a writer whose bytes are uploaded as they arrive.
// The upload completes when the writer is closed.
func (p *S3Store) OpenWriteStream(ctx context.Context, bucket, key string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	errChan := make(chan error, 1)

	go func() {
		_, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		pr.CloseWithError(err)
		errChan <- err
	}()

	return &asyncS3Writer{pw: pw, errChan: errChan}, nil
}

// ObjectExists reports whether bucket/key exists.
func (p *S3Store) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head s3://%s/%s: %w", bucket, key, err)
}

// DeleteObject removes bucket/key.
func (p *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// CopyObject performs a server-side copy of srcKey to dstKey within bucket.
func (p *S3Store) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := p.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(bucket, srcKey)),
	})
	if err != nil {
		return fmt.Errorf("s3 copy s3://%s/%s -> %s: %w", bucket, srcKey, dstKey, err)
	}
	return nil
}

// copySource builds the URL-encoded bucket/key reference CopyObject expects.
func copySource(bucket, key string) string {
	return url.PathEscape(bucket + "/" + key)
}

type asyncS3Writer struct {
	pw      *io.PipeWriter
	errChan <-chan error
}

func (w *asyncS3Writer) Write(p []byte) (n int, err error) {
	return w.pw.Write(p)
}

func (w *asyncS3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	// Wait for upload to complete
	if err := <-w.errChan; err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}
