package s3store

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientOptions configures NewClient. Every field is optional: an empty
// Region falls back to the region the SDK's default configuration
// resolves, and the rest default to the SDK's standard credential chain
// and AWS's own endpoints.
//
// Endpoint and UsePathStyle exist because spec.md §6 describes only
// bucket/prefix wire usage, not endpoint configuration — a gap any
// S3-compatible store (MinIO, Cloudflare R2, etc.) requires filling,
// grounded in haivivi-giztoy's S3Store doc comment naming the same
// targets.
type ClientOptions struct {
	Region string
	// Endpoint overrides the default AWS endpoint resolution, for
	// S3-compatible stores.
	Endpoint string
	// UsePathStyle selects path-style addressing (s3.amazonaws.com/bucket
	// rather than bucket.s3.amazonaws.com), required by most non-AWS S3-compatible
	// stores.
	UsePathStyle bool
	// AccessKeyID / SecretAccessKey / SessionToken, if AccessKeyID is
	// non-empty, configure static credentials instead of the SDK's
	// default chain (environment, shared config, instance role, etc.).
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewClient builds an *s3.Client from opts, suitable for passing to New.
func NewClient(ctx context.Context, opts ClientOptions) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = &opts.Endpoint
		}
	}), nil
}
