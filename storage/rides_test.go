package storage

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/storage/cache"
)

type stubRides struct {
	rides []*models.Ride
	err   error
}

func (s stubRides) GetAll(context.Context) ([]*models.Ride, error) { return s.rides, s.err }
func (s stubRides) GetByDriver(context.Context, string) ([]*models.Ride, error) {
	return s.rides, s.err
}
func (s stubRides) Create(_ context.Context, r *models.Ride) (*models.Ride, error) { return r, s.err }

func TestListRides(t *testing.T) {
	ctx := context.Background()
	key := cache.DeviceKey("dev", cache.KeyRides)
	backendDown := errors.New("backend down")

	c, err := cache.NewFile(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	res := ListRides(ctx, stubRides{err: backendDown}, c, key, logger.Nop())
	assert.Equal(t, SourceEmpty, res.Source)
	assert.Empty(t, res.Rides)
	assert.NotNil(t, res.Rides)
	assert.ErrorIs(t, res.Err, backendDown)

	fresh := []*models.Ride{{ID: "2"}, {ID: "1"}}
	res = ListRides(ctx, stubRides{rides: fresh}, c, key, logger.Nop())
	assert.Equal(t, SourceBackend, res.Source)
	assert.False(t, res.Fallback())
	assert.NoError(t, res.Err)

	res = ListRides(ctx, stubRides{err: backendDown}, c, key, logger.Nop())
	assert.Equal(t, SourceCache, res.Source)
	assert.True(t, res.Fallback())
	require.Len(t, res.Rides, 2)
	assert.Equal(t, models.FlexString("2"), res.Rides[0].ID)
}
