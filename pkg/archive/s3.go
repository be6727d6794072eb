// Package archive uploads reference copies to S3 compatible storage, so the
// originals of an erase run outlive the machine it ran on.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/loopholelabs/logging/types"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3 struct {
	client *minio.Client
	bucket string
	log    types.Logger
}

// NewS3 connects to endpoint and creates bucket if it does not exist yet.
func NewS3(ctx context.Context, endpoint string, access string, secretAccess string, bucket string, secure bool, log types.Logger) (*S3, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secretAccess, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("could not check bucket %s: %w", bucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("could not create bucket %s: %w", bucket, err)
		}
	}

	return &S3{
		client: client,
		bucket: bucket,
		log:    log,
	}, nil
}

// Key is where a file lands: prefix/basename.
func Key(prefix string, file string) string {
	return path.Join(prefix, filepath.Base(file))
}

// Store uploads every file under prefix, stopping at the first failure.
func (s *S3) Store(ctx context.Context, prefix string, files []string) error {
	for _, f := range files {
		key := Key(prefix, f)
		info, err := s.client.FPutObject(ctx, s.bucket, key, f, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			return fmt.Errorf("could not upload %s: %w", f, err)
		}
		if s.log != nil {
			s.log.Debug().Str("bucket", s.bucket).Str("key", key).Int64("size", info.Size).Msg("reference uploaded")
		}
	}
	return nil
}

// Get downloads one stored object.
func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}
