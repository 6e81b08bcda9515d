// Package sink writes finished artifacts to a local directory or an object
// store bucket.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Sink stores named artifacts under one destination root. Names are flat
// file names such as "doc1.json"; a sink never reads back what it wrote.
type Sink interface {
	// Ensure prepares the destination (create the directory, check the bucket).
	Ensure(ctx context.Context) error
	// Write stores data under name, replacing any earlier artifact.
	Write(ctx context.Context, name string, data []byte) error
	// Location renders where name ends up, for logs.
	Location(name string) string
}

// ErrInvalidTarget is returned for destinations that cannot be parsed.
var ErrInvalidTarget = errors.New("invalid output target")

// Target is a parsed output destination.
type Target struct {
	Scheme string // "", "gs" or "s3"
	Bucket string
	Prefix string
	Dir    string
}

// ParseTarget splits gs://bucket/prefix and s3://bucket/prefix URLs. Anything
// else is a local directory.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "gs://") && !strings.HasPrefix(lower, "s3://") {
		return Target{Dir: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidTarget, raw)
	}
	return Target{
		Scheme: strings.ToLower(u.Scheme),
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// objectName joins prefix and name with a single slash.
func objectName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// S3Options holds connection settings for S3-compatible stores.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region    string
}

// S3OptionsFromEnv reads S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY,
// S3_USE_SSL and S3_REGION.
func S3OptionsFromEnv() S3Options {
	opts := S3Options{
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Region:    os.Getenv("S3_REGION"),
		UseSSL:    true,
	}
	if v := strings.TrimSpace(os.Getenv("S3_USE_SSL")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.UseSSL = b
		}
	}
	return opts
}

// Open builds the sink for raw. Object store clients are created here, so
// credentials problems surface before any document is processed.
func Open(ctx context.Context, raw string, s3 S3Options) (Sink, error) {
	t, err := ParseTarget(raw)
	if err != nil {
		return nil, err
	}
	switch t.Scheme {
	case "":
		return &Local{Dir: t.Dir}, nil
	case "gs":
		return NewGCS(ctx, t.Bucket, t.Prefix)
	case "s3":
		return NewS3(s3, t.Bucket, t.Prefix)
	}
	return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, t.Scheme)
}
