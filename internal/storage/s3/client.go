package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"edrs-docstore/internal/config"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	emptyAWSSessionToken = ""
	defaultMaxRetries    = 2
	putMaxRetries        = 1
	putRetryDelay        = 100 * time.Millisecond
	putThrottleDelay     = 500 * time.Millisecond
	defaultListPageSize  = 100
	maxListPageSize      = 1000
	keyDelimiter         = "/"
	headerIfNoneMatch    = "If-None-Match"
	serverSideEncryption = "AES256"

	errFailedCreateAWSSessionFmt   = "failed to create AWS session: %w"
	errFailedPresignDownloadURLFmt = "failed to generate presigned download URL: %w"
	errFailedPutObjectFmt          = "failed to put object: %w"
	errFailedListObjectsFmt        = "failed to list objects: %w"
	errFailedDeleteObjectFmt       = "failed to delete object: %w"
	errFailedHeadBucketFmt         = "failed to reach bucket: %w"
	errObjectAlreadyExists         = "a document already exists at this storage key"
	errStorageUnavailableMsg       = "object storage is unavailable"
)

// Client wraps one S3 bucket.
type Client struct {
	svc    *s3.S3
	bucket string
}

type Option func(*aws.Config)

// WithMaxRetries overrides the SDK's own retry count.
func WithMaxRetries(n int) Option {
	return func(c *aws.Config) { c.MaxRetries = aws.Int(n) }
}

func NewClient(cfg *config.AWSConfig, opts ...Option) (*Client, error) {
	awsCfg := &aws.Config{
		Region:     aws.String(cfg.Region),
		MaxRetries: aws.Int(defaultMaxRetries),
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	for _, opt := range opts {
		opt(awsCfg)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}

	return &Client{
		svc:    s3.New(sess),
		bucket: cfg.Bucket,
	}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Put stores body under key. Objects are create-only: an existing key is a Conflict.
// A failed put is retried once and then reported as StorageUnavailable.
func (c *Client) Put(ctx context.Context, key string, body io.ReadSeeker, params ObjectParams) error {
	input := &s3.PutObjectInput{
		Bucket:               aws.String(c.bucket),
		Key:                  aws.String(key),
		Body:                 body,
		ACL:                  aws.String(s3.ObjectCannedACLPrivate),
		ServerSideEncryption: aws.String(serverSideEncryption),
		ContentType:          aws.String(params.ContentType),
		CacheControl:         aws.String(params.CacheControl),
		Metadata:             aws.StringMap(params.Metadata),
	}
	if params.ContentDisposition != "" {
		input.ContentDisposition = aws.String(params.ContentDisposition)
	}
	if params.ContentLength > 0 {
		input.ContentLength = aws.Int64(params.ContentLength)
	}

	req, _ := c.svc.PutObjectRequest(input)
	req.SetContext(ctx)
	req.Retryer = client.DefaultRetryer{
		NumMaxRetries:    putMaxRetries,
		MinRetryDelay:    putRetryDelay,
		MaxRetryDelay:    putRetryDelay,
		MinThrottleDelay: putThrottleDelay,
		MaxThrottleDelay: putThrottleDelay,
	}
	req.HTTPRequest.Header.Set(headerIfNoneMatch, "*")

	err := req.Send()
	if err == nil {
		return nil
	}
	if isPreconditionFailed(err) {
		// The retried attempt found the object: the first attempt landed but its
		// response was lost.
		if req.RetryCount > 0 {
			return nil
		}
		return apperrors.Conflict(errObjectAlreadyExists)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf(errFailedPutObjectFmt, err)
	}
	return apperrors.StorageUnavailable(errStorageUnavailableMsg, fmt.Errorf(errFailedPutObjectFmt, err))
}

// Delete removes key. Deleting a missing key succeeds.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify(errFailedDeleteObjectFmt, err)
	}
	return nil
}

// PresignGet returns a GET URL for key valid for ttl.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := c.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(ttl)
	if err != nil {
		return "", classify(errFailedPresignDownloadURLFmt, err)
	}
	return url, nil
}

// List returns one page of objects and sub-folders directly under prefix.
func (c *Client) List(ctx context.Context, prefix, continuationToken string, pageSize int) (*Listing, error) {
	if pageSize <= 0 {
		pageSize = defaultListPageSize
	}
	if pageSize > maxListPageSize {
		pageSize = maxListPageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String(keyDelimiter),
		MaxKeys:   aws.Int64(int64(pageSize)),
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	resp, err := c.svc.ListObjectsV2WithContext(ctx, input)
	if err != nil {
		return nil, classify(errFailedListObjectsFmt, err)
	}

	listing := &Listing{
		Prefix:    prefix,
		Folders:   make([]string, 0, len(resp.CommonPrefixes)),
		Objects:   make([]ObjectInfo, 0, len(resp.Contents)),
		NextToken: aws.StringValue(resp.NextContinuationToken),
		Truncated: aws.BoolValue(resp.IsTruncated),
	}
	for _, p := range resp.CommonPrefixes {
		listing.Folders = append(listing.Folders, aws.StringValue(p.Prefix))
	}
	for _, obj := range resp.Contents {
		if aws.StringValue(obj.Key) == prefix {
			continue
		}
		listing.Objects = append(listing.Objects, ObjectInfo{
			Key:          aws.StringValue(obj.Key),
			Size:         aws.Int64Value(obj.Size),
			LastModified: aws.TimeValue(obj.LastModified),
		})
	}
	return listing, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return classify(errFailedHeadBucketFmt, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var reqErr awserr.RequestFailure
	return errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusPreconditionFailed
}

// classify marks throttling, 5xx, timeouts and cancellations as StorageUnavailable so
// callers can decide whether to retry.
func classify(format string, err error) error {
	if IsTransient(err) {
		return apperrors.StorageUnavailable(errStorageUnavailableMsg, fmt.Errorf(format, err))
	}
	return fmt.Errorf(format, err)
}

// IsTransient reports whether err is a timeout, a cancellation, throttling or a 5xx from
// S3. Errors that did not come from the SDK are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	if aerr.Code() == request.CanceledErrorCode {
		return true
	}
	if request.IsErrorRetryable(aerr) || request.IsErrorThrottle(aerr) {
		return true
	}
	var reqErr awserr.RequestFailure
	return errors.As(err, &reqErr) && reqErr.StatusCode() >= http.StatusInternalServerError
}
