// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package initload

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// gunzipOnRead wraps an S3 object body in a gzip reader, closing both
// on Close.
func gunzipOnRead(body io.ReadCloser) (io.ReadCloser, error) {
	gz, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("initload: ungzipping s3 object: %w", err)
	}
	return gzipReadCloser2{gz: gz, body: body}, nil
}

type gzipReadCloser2 struct {
	gz   *gzip.Reader
	body io.ReadCloser
}

func (g gzipReadCloser2) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g gzipReadCloser2) Close() error {
	gzErr := g.gz.Close()
	bErr := g.body.Close()
	if gzErr != nil {
		return gzErr
	}
	return bErr
}

// S3Backend reads initial dataset files from objects under a bucket
// prefix. The teacher's own S3Archive was an empty stub (path field,
// no methods); this is a from-scratch client built against the same
// "backend interface" shape fsBackend.go/s3Backend.go imply, since
// nothing in the teacher tree demonstrates actual aws-sdk-go-v2 usage
// to adapt from.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config names the bucket/prefix and, optionally, static credentials;
// when AccessKeyID is empty the default credential chain (environment,
// shared config, instance role) is used.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// NewS3Backend resolves AWS credentials per cfg and builds a Backend
// over cfg.Bucket/cfg.Prefix.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
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
		return nil, fmt.Errorf("initload: loading aws config: %w", err)
	}

	return &S3Backend{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

func (b *S3Backend) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

func (b *S3Backend) List(ctx context.Context) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("initload: listing s3://%s/%s: %w", b.bucket, b.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") && !strings.HasSuffix(key, ".json.gz") {
				continue
			}
			name := strings.TrimPrefix(key, b.prefix+"/")
			names = append(names, name)
		}
	}
	return names, nil
}

func (b *S3Backend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("initload: getting s3://%s/%s: %w", b.bucket, b.key(name), err)
	}
	if strings.HasSuffix(name, ".gz") {
		return gunzipOnRead(out.Body)
	}
	return out.Body, nil
}
