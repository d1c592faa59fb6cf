package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantID(t *testing.T) {
	_, err := TenantID(context.Background())
	assert.ErrorIs(t, err, ErrNoTenantInContext)

	_, err = TenantID(WithTenantID(context.Background(), ""))
	assert.ErrorIs(t, err, ErrNoTenantInContext)

	id, err := TenantID(WithTenantID(context.Background(), "tenant-1"))
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", id)
}

func TestMustTenantID(t *testing.T) {
	assert.Panics(t, func() { MustTenantID(context.Background()) })
	assert.Equal(t, "t", MustTenantID(WithTenantID(context.Background(), "t")))
}
