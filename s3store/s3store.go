// Package s3store implements objstore.Store against Amazon S3 (or any
// S3-compatible store: MinIO, R2, etc.), grounded on the S3Client
// interface-narrowing pattern of haivivi-giztoy's pkg/storage/s3.go: accept
// only the handful of *s3.Client methods actually used, so a small mock can
// stand in for the real client in tests.
package s3store

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"

	"github.com/neusearch/lucene-cloud-go/internal/base"
	"github.com/neusearch/lucene-cloud-go/objstore"
)

// Client abstracts the S3 API operations Store depends on. *s3.Client
// satisfies this interface; tests substitute a narrower mock.
type Client interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
}

// Store implements objstore.Store against bucket/prefix in S3.
//
// Keys are prefix + name, where prefix is normalized to end in exactly one
// "/" (spec §6). The caller configures the client's credentials, region,
// and (for S3-compatible stores) a custom endpoint and path-style
// addressing before passing it to New.
type Store struct {
	client Client
	bucket string
	prefix string
}

// New creates an S3-backed Store, wrapped in objstore.WithVersionedRetry
// (spec §4.1): real S3 is the eventually consistent backend the retry
// decorator exists for, so every Store this package hands out already
// masks the read-your-writes window rather than leaving callers to
// remember to wrap it themselves.
func New(client Client, bucket, prefix string) objstore.Store {
	return objstore.WithVersionedRetry(&Store{client: client, bucket: bucket, prefix: normalizePrefix(prefix)})
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

var _ objstore.Store = (*Store)(nil)

func (s *Store) Close() error { return nil }

func (s *Store) List(ctx context.Context) ([]objstore.ObjectInfo, error) {
	var infos []objstore.ObjectInfo
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, base.MarkTransport(err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == s.prefix {
				continue
			}
			infos = append(infos, objstore.ObjectInfo{
				Name: strings.TrimPrefix(key, s.prefix),
				Size: aws.ToInt64(obj.Size),
			})
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return infos, nil
}

func (s *Store) Head(ctx context.Context, name string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return 0, s.classify(err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out.Body, nil
}

func (s *Store) GetVersion(ctx context.Context, name, versionID string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:    aws.String(s.bucket),
		Key:       aws.String(s.key(name)),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return out.Body, nil
}

func (s *Store) GetRange(ctx context.Context, name string, offset, length int64) ([]byte, error) {
	return s.getRange(ctx, name, "", offset, length)
}

func (s *Store) GetRangeVersion(ctx context.Context, name, versionID string, offset, length int64) ([]byte, error) {
	return s.getRange(ctx, name, versionID, offset, length)
}

func (s *Store) getRange(ctx context.Context, name, versionID string, offset, length int64) ([]byte, error) {
	rng := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Range:  aws.String(rng),
	}
	if versionID != "" {
		in.VersionId = aws.String(versionID)
	}
	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		return nil, s.classify(err)
	}
	defer out.Body.Close()
	buf := make([]byte, length)
	n, err := io.ReadFull(out.Body, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, base.MarkTransport(err)
	}
	if int64(n) != length {
		return nil, base.MarkConsistency(errors.Newf(
			"lucene-cloud: range get of %s returned %d bytes, wanted %d", name, n, length))
	}
	return buf, nil
}

func (s *Store) Put(ctx context.Context, name string, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return base.MarkLocalIO(err)
	}
	defer f.Close()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   f,
	})
	if err != nil {
		return base.MarkTransport(err)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, from, to string) error {
	source := s.bucket + "/" + s.key(from)
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.key(to)),
		CopySource: aws.String(source),
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !s.IsNotExist(err) {
		return base.MarkTransport(err)
	}
	return nil
}

// ListVersions lists the version ids of name, most recent first (spec
// §4.1's versioned-retry path).
func (s *Store) ListVersions(ctx context.Context, name string) ([]string, error) {
	out, err := s.client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(name)),
	})
	if err != nil {
		return nil, base.MarkTransport(err)
	}
	var ids []string
	for _, v := range out.Versions {
		if aws.ToString(v.Key) != s.key(name) {
			continue
		}
		ids = append(ids, aws.ToString(v.VersionId))
	}
	return ids, nil
}

// BulkUpload uploads every (name, localPath) pair concurrently via the
// package-level bulk helper (objstore/bulk.go), which every Store
// implementation shares.
func (s *Store) BulkUpload(ctx context.Context, paths map[string]string) error {
	return objstore.BulkUpload(ctx, s, paths)
}

// BulkDownload downloads every (name, localPath) pair concurrently.
func (s *Store) BulkDownload(ctx context.Context, names map[string]string) error {
	return objstore.BulkDownload(ctx, s, names)
}

// IsNotExist reports whether err indicates the S3 object does not exist,
// grounded verbatim on haivivi-giztoy's isS3NotFound classifier.
func (s *Store) IsNotExist(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	return false
}

func (s *Store) classify(err error) error {
	if err == nil {
		return nil
	}
	if s.IsNotExist(err) {
		return base.MarkNotFound(err)
	}
	return base.MarkTransport(err)
}
