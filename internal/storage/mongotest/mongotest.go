// Package mongotest поднимает MongoDB в контейнере для интеграционных тестов.
package mongotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const mongoPort = nat.Port("27017/tcp")

// MigrationsPath путь к миграциям относительно пакетов internal/<pkg>.
const MigrationsPath = "../../migrations"

// SetupMongoContainer запускает mongo:7 и возвращает URI подключения.
// С флагом -short тест пропускается.
func SetupMongoContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{string(mongoPort)},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(mongoPort),
			wait.ForLog("Waiting for connections"),
		).WithDeadline(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start mongo container")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate mongo container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, mongoPort)
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}
