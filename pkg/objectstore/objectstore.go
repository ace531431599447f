package objectstore

import (
	"bytes"
	"context"
	"io"

	"github.com/bodspipeline/bodspipeline/pkg/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var Client *minio.Client

const defaultEndpoint = "localhost:9000"

func Connect() error {
	endpoint := defaultEndpoint
	useSSL := false

	env := util.GetEnvironmentVariables()

	if env["BODSPIPE_OBJECTSTORE_ENDPOINT"] != "" {
		endpoint = env["BODSPIPE_OBJECTSTORE_ENDPOINT"]
	}

	if env["BODSPIPE_OBJECTSTORE_SSL"] == "YES" {
		useSSL = true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(env["BODSPIPE_OBJECTSTORE_ACCESS_KEY"], env["BODSPIPE_OBJECTSTORE_SECRET_KEY"], ""),
		Secure: useSSL,
	})
	if err != nil {
		return err
	}

	Client = client

	return nil
}

func Get(ctx context.Context, bucket string, key string) (io.ReadCloser, error) {
	object, err := Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	// GetObject is lazy so a missing key only surfaces on first read
	if _, err := object.Stat(); err != nil {
		object.Close()
		return nil, err
	}

	return object, nil
}

func GetBytes(ctx context.Context, bucket string, key string) ([]byte, error) {
	object, err := Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer object.Close()

	return io.ReadAll(object)
}

func Put(ctx context.Context, bucket string, key string, reader io.Reader, size int64, contentType string) error {
	_, err := Client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})

	return err
}

func PutBytes(ctx context.Context, bucket string, key string, body []byte, contentType string) error {
	return Put(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), contentType)
}

func List(ctx context.Context, bucket string, prefix string) ([]string, error) {
	var keys []string

	for object := range Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}

		keys = append(keys, object.Key)
	}

	return keys, nil
}
