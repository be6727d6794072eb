package testutils

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	MinioAccessKey = "scarscar"
	MinioSecretKey = "scarscar"
)

/**
 * SetupMinio starts a throwaway minio container and returns its endpoint.
 * The test is skipped when no docker daemon can be reached.
 *
 */
func SetupMinio(t testing.TB) string {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	err = pool.Client.Ping()
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	options := &dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        "latest",
		Cmd:        []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=" + MinioAccessKey,
			"MINIO_ROOT_PASSWORD=" + MinioSecretKey,
		},
	}

	resource, err := pool.RunWithOptions(options, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		t.Skipf("could not start minio: %v", err)
	}

	t.Cleanup(func() {
		err := pool.Purge(resource)
		if err != nil {
			t.Logf("could not purge minio: %v", err)
		}
	})

	err = resource.Expire(180)
	if err != nil {
		t.Fatalf("could not set minio expiry: %v", err)
	}
	endpoint := fmt.Sprintf("localhost:%s", resource.GetPort("9000/tcp"))

	err = pool.Retry(func() error {
		resp, err := http.Get(fmt.Sprintf("http://%s/minio/health/live", endpoint))
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status code %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("minio never came up: %v", err)
	}
	return endpoint
}
