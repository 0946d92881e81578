package shop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/mall-admin-backend/internal/shop"
	"github.com/nekogravitycat/mall-admin-backend/internal/shop/shoptest"
)

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := shop.NewService(shoptest.New())

	created, err := svc.Create(ctx, shop.CreateRequest{Name: "  Unit G-12 ", Location: "Ground floor", Size: 85.5})
	require.NoError(t, err)
	assert.Equal(t, "Unit G-12", created.Name)
	assert.NotEmpty(t, created.ID)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, shop.ErrNotFound)

	_, err = svc.Create(ctx, shop.CreateRequest{Name: "Unit G-12", Size: 10})
	assert.ErrorIs(t, err, shop.ErrNameTaken)
}

func TestCreateValidation(t *testing.T) {
	svc := shop.NewService(shoptest.New())

	_, err := svc.Create(context.Background(), shop.CreateRequest{Name: " ", Size: 10})
	assert.ErrorIs(t, err, shop.ErrNameRequired)

	_, err = svc.Create(context.Background(), shop.CreateRequest{Name: "Kiosk", Size: 0})
	assert.ErrorIs(t, err, shop.ErrInvalidSize)
}

func TestListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	svc := shop.NewService(shoptest.New())
	for _, name := range []string{"Atrium Kiosk", "Unit A", "Unit B", "Unit C"} {
		_, err := svc.Create(ctx, shop.CreateRequest{Name: name, Size: 20})
		require.NoError(t, err)
	}

	shops, total, err := svc.List(ctx, shop.Filter{Keyword: "unit", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, shops, 2)
	assert.Equal(t, "Unit A", shops[0].Name)
}
