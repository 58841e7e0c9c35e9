//go:build integration

package routestore

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	core "github.com/kilianp07/dutyplan/core/routestore"
)

func TestMongoStore_Integration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	s, err := OpenMongo(ctx, fmt.Sprintf("mongodb://%s:%s/", host, port.Port()), "dutyplan_test")
	require.NoError(t, err)
	defer s.Close()

	a, err := s.Create(ctx, sampleDoc("1"))
	require.NoError(t, err)
	b, err := s.Create(ctx, sampleDoc("2"))
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	up, err := s.Update(ctx, a.ID, sampleDoc("1b"))
	require.NoError(t, err)
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1b", got.RouteNumber)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)
	assert.Equal(t, up.UpdatedAt, got.UpdatedAt)

	require.NoError(t, s.Delete(ctx, b.ID))
	assert.ErrorIs(t, s.Delete(ctx, b.ID), core.ErrNotFound)
	_, err = s.Get(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
