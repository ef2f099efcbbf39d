package object

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Config configures an S3-backed Store. Grounded on
// pkg/storage/postgres/s3.go's S3Client construction (static vs default
// credential chain, BaseEndpoint/UsePathStyle for S3-compatible
// endpoints).
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible services (minio, etc.)
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store is a Store backed by an S3-compatible object store.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds an S3Store from cfg, branching on whether static
// credentials were supplied or the default AWS credential chain should be
// used.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Capabilities reports the S3 backend's capability flags: it has no
// independent directory objects (a "directory" is a key prefix, not an
// object) but does support native content-type metadata.
func (s *S3Store) Capabilities() Capabilities {
	return Capabilities{
		Stat: true, Read: true, ReadWithRange: true, List: true,
		ListWithDelimiterSlash: true, Write: true, Delete: true,
		HasIndependentDirObjects:          false,
		SupportsNativeContentTypeMetadata: true,
	}
}

func (s *S3Store) key(path string) string {
	return strings.TrimPrefix(path, "/")
}

// Stat returns head-object metadata for path.
func (s *S3Store) Stat(ctx context.Context, path string) (Metadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if isNotFound(err) {
		return Metadata{}, ErrNotFound
	}
	if err != nil {
		return Metadata{}, err
	}
	m := Metadata{Path: path}
	if out.ContentLength != nil {
		m.ContentLength = *out.ContentLength
	}
	if out.ContentType != nil {
		m.ContentType = *out.ContentType
	}
	if out.ETag != nil {
		m.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.LastModified != nil {
		m.LastModified = *out.LastModified
	}
	return m, nil
}

// Read fetches path, optionally applying a byte-range request.
func (s *S3Store) Read(ctx context.Context, path string, rng *ByteRange) (Metadata, io.ReadCloser, error) {
	in := &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key(path))}
	if rng != nil {
		end := ""
		if rng.Length >= 0 {
			end = intToStr(rng.Offset + rng.Length - 1)
		}
		in.Range = aws.String("bytes=" + intToStr(rng.Offset) + "-" + end)
	}
	out, err := s.client.GetObject(ctx, in)
	if isNotFound(err) {
		return Metadata{}, nil, ErrNotFound
	}
	if err != nil {
		return Metadata{}, nil, err
	}
	m := Metadata{Path: path}
	if out.ContentLength != nil {
		m.ContentLength = *out.ContentLength
	}
	if out.ContentType != nil {
		m.ContentType = *out.ContentType
	}
	if out.ETag != nil {
		m.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.LastModified != nil {
		m.LastModified = *out.LastModified
	}
	return m, out.Body, nil
}

// Write uploads content at path with the given content-type, computing
// its length up front (S3 PutObject requires a seekable/known-length
// body for checksum purposes in the reference teacher client).
func (s *S3Store) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String(contentType),
	})
	return err
}

// List enumerates objects under the nsPath prefix using a "/" delimiter.
func (s *S3Store) List(ctx context.Context, nsPath string) ([]Entry, error) {
	prefix := s.key(nsPath)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(out.Contents)+len(out.CommonPrefixes))
	for _, obj := range out.Contents {
		if obj.Key == nil || *obj.Key == prefix {
			continue
		}
		m := Metadata{Path: "/" + *obj.Key}
		if obj.Size != nil {
			m.ContentLength = *obj.Size
		}
		if obj.LastModified != nil {
			m.LastModified = *obj.LastModified
		}
		entries = append(entries, Entry{Path: m.Path, Meta: m})
	}
	// CommonPrefixes holds the key-prefixes one level down the delimiter —
	// the only signal S3 gives of a "container" that has no object of its
	// own (its contents are objects nested deeper under the prefix).
	for _, cp := range out.CommonPrefixes {
		if cp.Prefix == nil {
			continue
		}
		entries = append(entries, Entry{Path: "/" + *cp.Prefix, IsContainer: true})
	}
	return entries, nil
}

// Delete removes the object at path.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	return err
}

// CreateNS is a no-op on S3: directories are implied by key prefixes.
func (s *S3Store) CreateNS(_ context.Context, _ string) error {
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}

func intToStr(i int64) string { return strconv.FormatInt(i, 10) }

var _ Store = (*S3Store)(nil)
