package allocator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmohaa/matchmaker/internal/models"
)

func tickets(regions ...string) []models.TicketProjection {
	out := make([]models.TicketProjection, len(regions))
	for i, r := range regions {
		out[i] = models.TicketProjection{TicketID: "t" + r, Attributes: models.Attributes{}}
		if r != "" {
			out[i].Attributes[RegionAttribute] = r
		}
	}
	return out
}

func TestParseRegions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Region
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{
			name: "two regions",
			raw:  "eu=10.0.0.1:12203, us=us.example.net:12204",
			want: []Region{{Name: "eu", Host: "10.0.0.1", Port: 12203}, {Name: "us", Host: "us.example.net", Port: 12204}},
		},
		{name: "missing name", raw: "=10.0.0.1:1", wantErr: true},
		{name: "missing port", raw: "eu=10.0.0.1", wantErr: true},
		{name: "bad port", raw: "eu=10.0.0.1:70000", wantErr: true},
		{name: "duplicate", raw: "eu=a:1,eu=b:2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRegions(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegionAllocator_Closest(t *testing.T) {
	a := NewRegionAllocator([]Region{
		{Name: "eu", Host: "eu.host", Port: 1},
		{Name: "us", Host: "us.host", Port: 2},
	}, "us")
	ctx := context.Background()

	info, err := a.AllocateServer(ctx, "mohaa", models.AllocationClosest, tickets("eu", "us"))
	require.NoError(t, err)
	assert.Equal(t, models.ServerInfo{Host: "eu.host", Port: 1, Region: "eu"}, info)

	info, err = a.AllocateServer(ctx, "mohaa", models.AllocationClosest, tickets("", "eu"))
	require.NoError(t, err)
	assert.Equal(t, "us", info.Region, "first ticket has no region, default expected")

	info, err = a.AllocateServer(ctx, "mohaa", models.AllocationClosest, tickets("asia"))
	require.NoError(t, err)
	assert.Equal(t, "us", info.Region)
}

func TestRegionAllocator_UnknownDefaultFallsBackToFirst(t *testing.T) {
	a := NewRegionAllocator([]Region{{Name: "eu", Host: "eu.host", Port: 1}}, "mars")
	info, err := a.AllocateServer(context.Background(), "mohaa", models.AllocationClosest, nil)
	require.NoError(t, err)
	assert.Equal(t, "eu", info.Region)
}

func TestRegionAllocator_BalancedRotates(t *testing.T) {
	a := NewRegionAllocator([]Region{
		{Name: "eu", Host: "eu.host", Port: 1},
		{Name: "us", Host: "us.host", Port: 2},
	}, "eu")

	var got []string
	for i := 0; i < 4; i++ {
		info, err := a.AllocateServer(context.Background(), "mohaa", models.AllocationBalanced, tickets("eu"))
		require.NoError(t, err)
		got = append(got, info.Region)
	}
	assert.Equal(t, []string{"eu", "us", "eu", "us"}, got)
}

func TestRegionAllocator_Errors(t *testing.T) {
	_, err := NewRegionAllocator(nil, "").AllocateServer(context.Background(), "mohaa", models.AllocationClosest, nil)
	assert.True(t, errors.Is(err, ErrNoCapacity))

	a := NewRegionAllocator([]Region{{Name: "eu", Host: "h", Port: 1}}, "eu")
	_, err = a.AllocateServer(context.Background(), "mohaa", models.AllocationCustom, nil)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}
