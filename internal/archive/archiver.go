// Copyright (c) 2026 FleetOps Contributors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package archive implements an optional S3-compatible uploader for
// completed mission records and rover state-file snapshots, giving
// operators durable history past the in-memory mission table's ceiling.
// It is fully inert when no bucket is configured.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
)

// MissionSnapshot is the subset of a MissionRecord archived to S3.
type MissionSnapshot struct {
	ID           string    `json:"id"`
	RoverID      string    `json:"rover_id"`
	TaskType     string    `json:"task_type"`
	Progress     uint8     `json:"progress"`
	Battery      uint8     `json:"battery"`
	StartTime    time.Time `json:"start_time"`
	CompletedAt  time.Time `json:"completed_at"`
	UpdatesCount int       `json:"updates_count"`
}

// MissionArchiver uploads completed missions and rover state bytes to an
// S3-compatible bucket. A nil *MissionArchiver is safe to call Upload* on
// — it becomes a no-op.
type MissionArchiver struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New builds a MissionArchiver against bucket/region, prefixing every
// uploaded key with prefix. accessKeyID/secretAccessKey are optional; when
// either is empty the SDK's default credential chain is used instead.
// Returns an error only if loading the AWS configuration fails; a missing
// bucket is the caller's signal to skip construction entirely (see
// config.ArchiveConfig.Enabled).
func New(ctx context.Context, bucket, region, prefix, accessKeyID, secretAccessKey string, logger *slog.Logger) (*MissionArchiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &MissionArchiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger.With("component", "archive"),
	}, nil
}

// UploadMission marshals snap to JSON and puts it at
// {prefix}/missions/{id}.json.
func (a *MissionArchiver) UploadMission(ctx context.Context, snap MissionSnapshot) error {
	if a == nil {
		return nil
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling mission snapshot: %w", err)
	}
	key := path.Join(a.prefix, "missions", snap.ID+".json")
	return a.put(ctx, key, body, "application/json")
}

// UploadRoverState gzips the raw state-file bytes for roverID and uploads
// them to {prefix}/rover-state/{rover_id}.bin.gz, called on rover disconnect.
func (a *MissionArchiver) UploadRoverState(ctx context.Context, roverID string, data []byte) error {
	if a == nil {
		return nil
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return fmt.Errorf("compressing rover state: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("compressing rover state: %w", err)
	}

	key := path.Join(a.prefix, "rover-state", roverID+".bin.gz")
	return a.put(ctx, key, buf.Bytes(), "application/gzip")
}

func (a *MissionArchiver) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		a.logger.Warn("s3 upload failed", "error", err, "key", key)
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}
