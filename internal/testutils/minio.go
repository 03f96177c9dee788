//go:build integration

package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ligustah/fontpack/internal/cache"
)

const (
	minioUser     = "fontpack"
	minioPassword = "fontpack-secret"
)

// FontBucket is an S3 font cache served by a throwaway MinIO container.
type FontBucket struct {
	// URL opens the bucket through the s3blob driver, e.g. for the CLI.
	URL string

	// Cache is the bucket already opened as a font cache.
	Cache *cache.Cache
}

// StartFontBucket runs MinIO with an empty bucket named name and opens it as
// a font cache. The caller must blank-import gocloud.dev/blob/s3blob. The
// cache and the container are released when the test ends.
func StartFontBucket(t *testing.T, ctx context.Context, name string) *FontBucket {
	t.Helper()

	// A top-level directory of the data dir is served as a bucket, so no
	// client container is needed to create it.
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd:        []string{fmt.Sprintf("mkdir -p /data/%s && exec minio server /data", name)},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate minio: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "http")
	if err != nil {
		t.Fatalf("minio endpoint: %v", err)
	}

	// s3blob reads credentials from the environment.
	t.Setenv("AWS_ACCESS_KEY_ID", minioUser)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioPassword)

	url := fmt.Sprintf("s3://%s?endpoint=%s&use_path_style=true&disable_https=true&region=us-east-1", name, endpoint)
	c, err := cache.Open(ctx, url)
	if err != nil {
		t.Fatalf("open font cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return &FontBucket{URL: url, Cache: c}
}
