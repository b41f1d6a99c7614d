package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

/*
Conn wraps a minio client scoped to a single bucket. It works against any
S3-compatible endpoint.
*/
type Conn struct {
	client *minio.Client
	bucket string
}

func NewConn(
	endpoint string,
	accessKey string,
	secretKey string,
	bucket string,
	useSSL bool,
) (*Conn, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	return &Conn{client: client, bucket: bucket}, nil
}

/*
EnsureBucket creates the bucket when it does not exist yet.
*/
func (conn *Conn) EnsureBucket(ctx context.Context) error {
	exists, err := conn.client.BucketExists(ctx, conn.bucket)

	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", conn.bucket, err)
	}

	if exists {
		return nil
	}

	return conn.client.MakeBucket(ctx, conn.bucket, minio.MakeBucketOptions{})
}

func (conn *Conn) Put(
	ctx context.Context,
	objectKey string,
	contentType string,
	data []byte,
) error {
	_, err := conn.client.PutObject(
		ctx, conn.bucket, objectKey,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)

	return err
}
