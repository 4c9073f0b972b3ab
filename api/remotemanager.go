package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"time"

	"github.com/aouyang1/photoslideshow/util"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	remoteCheckInterval = time.Duration(1 * time.Hour)
	remoteSyncTimeout   = time.Duration(30 * time.Minute)
)

// Bucket is the object storage a RemoteManager mirrors.
type Bucket interface {
	ListKeys(ctx context.Context) ([]string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

type s3Bucket struct {
	client     *s3.Client
	downloader *manager.Downloader
	name       string
}

// NewS3Bucket loads the shared AWS configuration (~/.aws/config), optionally
// for a named profile.
func NewS3Bucket(ctx context.Context, name, profile string) (Bucket, error) {
	if name == "" {
		return nil, errors.New("no s3 bucket provided")
	}

	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	ctxCfg, cancelCfg := context.WithTimeout(ctx, time.Duration(3*time.Second))
	cfg, err := config.LoadDefaultConfig(ctxCfg, opts...)
	cancelCfg()
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &s3Bucket{
		client:     client,
		downloader: manager.NewDownloader(client),
		name:       name,
	}, nil
}

func (b *s3Bucket) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to list objects in %s: %w", b.name, err)
		}
		for object := range slices.Values(page.Contents) {
			keys = append(keys, aws.ToString(object.Key))
		}
	}
	return keys, nil
}

func (b *s3Bucket) Download(ctx context.Context, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	if _, err := b.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("unable to download object from s3, %s, %w", key, err)
	}
	return buf.Bytes(), nil
}

// RemoteManager mirrors the image objects of a bucket into the store.
// Photos whose object disappeared from the bucket are removed.
type RemoteManager struct {
	bucket  Bucket
	library *Library
}

func NewRemoteManager(bucket Bucket, library *Library) *RemoteManager {
	return &RemoteManager{
		bucket:  bucket,
		library: library,
	}
}

// diffKeys returns the supported remote keys not imported yet and the
// imported keys no longer present remotely.
func diffKeys(remote []string, imported map[string]string) (toDownload, toDelete []string) {
	remoteKeys := mapset.NewThreadUnsafeSet[string]()
	for key := range slices.Values(remote) {
		if util.IsSupported(key) {
			remoteKeys.Add(key)
		}
	}
	importedKeys := mapset.NewThreadUnsafeSet[string]()
	for key := range imported {
		importedKeys.Add(key)
	}

	toDownload = remoteKeys.Difference(importedKeys).ToSlice()
	toDelete = importedKeys.Difference(remoteKeys).ToSlice()
	slices.Sort(toDownload)
	slices.Sort(toDelete)
	return toDownload, toDelete
}

func (r *RemoteManager) SyncBucket(ctx context.Context) error {
	remote, err := r.bucket.ListKeys(ctx)
	if err != nil {
		return err
	}
	imported, err := r.library.db.GetSourceKeys()
	if err != nil {
		return err
	}

	toDownload, toDelete := diffKeys(remote, imported)
	if len(toDelete) > 0 {
		slog.Info("removing photos deleted from bucket", "count", len(toDelete), "keys", toDelete)
		for key := range slices.Values(toDelete) {
			if err := r.library.Remove(imported[key]); err != nil {
				slog.Warn("unable to remove photo", "key", key, "error", err)
			}
		}
	}
	if len(toDownload) > 0 {
		slog.Info("adding photos from bucket", "count", len(toDownload), "keys", toDownload)
		for key := range slices.Values(toDownload) {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := r.bucket.Download(ctx, key)
			if err != nil {
				slog.Warn("error while downloading s3 object", "key", key, "error", err)
				continue
			}
			if _, err := r.library.Add(bytes.NewReader(data), util.Ext(key), PhotoMeta{
				OriginalFilename: path.Base(key),
				SourceKey:        key,
			}); err != nil {
				slog.Warn("error while storing s3 object", "key", key, "error", err)
			}
		}
	}
	return nil
}

func (r *RemoteManager) sync(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, remoteSyncTimeout)
	defer cancel()
	if err := r.SyncBucket(ctx); err != nil {
		slog.Warn("error while syncing with remote", "error", err)
	}
}

func (r *RemoteManager) Run(ctx context.Context) {
	ticker := time.NewTicker(remoteCheckInterval)
	defer ticker.Stop()

	// Initial sync
	r.sync(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sync(ctx)
		}
	}
}
