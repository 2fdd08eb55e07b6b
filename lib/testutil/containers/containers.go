//go:build integration

// Package containers starts throwaway database containers for integration
// tests and returns the matching configuration sections.
package containers

import (
	"context"
	"testing"

	"sortec/internal/config"

	"github.com/testcontainers/testcontainers-go"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	database = "sortec"
	user     = "sortec"
	password = "sortec"
)

// Mongo starts a MongoDB container that lives until the test ends.
func Mongo(t *testing.T) config.Mongo {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start mongodb container: %v", err)
	}
	terminate(t, container)
	mapped, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host := hostOf(t, container)
	port := mapped.Port()

	return config.Mongo{
		Enabled:  true,
		Host:     host,
		Port:     port,
		Database: database,
	}
}

// MySql starts a MySQL container with an empty database.
func MySql(t *testing.T) config.MySql {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase(database),
		tcmysql.WithUsername(user),
		tcmysql.WithPassword(password),
	)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	terminate(t, container)
	mapped, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host := hostOf(t, container)
	port := mapped.Port()

	return config.MySql{
		Enabled:  true,
		HostName: host,
		Port:     port,
		UserName: user,
		Password: password,
		Database: database,
	}
}

// Redis starts a Redis container.
func Redis(t *testing.T) config.Redis {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	terminate(t, container)
	mapped, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host := hostOf(t, container)
	port := mapped.Port()

	return config.Redis{
		Enabled: true,
		Addr:    host + ":" + port,
		Key:     "sortec:registration:seq",
	}
}

func terminate(t *testing.T, container testcontainers.Container) {
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})
}

func hostOf(t *testing.T, container testcontainers.Container) string {
	t.Helper()
	host, err := container.Host(context.Background())
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	return host
}
