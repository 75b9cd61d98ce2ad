package governance

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-governance-backend/models"
)

func TestIsEligible(t *testing.T) {
	ctx := context.Background()
	dir := newMemDirectory()
	dir.own(1, building, 50)
	dir.own(2, 2, 50)
	dir.buildings[3] = []uint64{building}
	r := NewResolver(dir, quietLogger())

	scoped := proposal(models.SimpleMajority, &building, models.RoleHomeowner, models.RoleRenter)
	global := proposal(models.SimpleMajority, nil, models.RoleHomeowner)

	tests := []struct {
		name string
		u    *User
		p    *models.Proposal
		want bool
	}{
		{"anonymous", nil, global, false},
		{"homeowner on platform-wide", user(2, models.RoleHomeowner), global, true},
		{"role not listed", user(3, models.RoleRenter), global, false},
		{"homeowner in building", user(1, models.RoleHomeowner), scoped, true},
		{"renter in building", user(3, models.RoleRenter), scoped, true},
		{"homeowner elsewhere", user(2, models.RoleHomeowner), scoped, false},
		{"admin without listed role", admin(), scoped, false},
		{"admin with listed role", user(1000, models.RoleAdmin, models.RoleRenter), scoped, true},
		{"manager gets no vote by default", user(4, models.RoleManager), global, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsEligible(ctx, tt.u, tt.p))
		})
	}
}

func TestIsEligibleDirectoryFailure(t *testing.T) {
	dir := newMemDirectory()
	dir.err = errors.New("directory offline")
	r := NewResolver(dir, quietLogger())

	p := proposal(models.SimpleMajority, &building)
	assert.False(t, r.IsEligible(context.Background(), user(1, models.RoleHomeowner), p))
}

func TestCanViewAndManage(t *testing.T) {
	ctx := context.Background()
	dir := newMemDirectory()
	dir.buildings[10] = []uint64{building}
	dir.buildings[11] = []uint64{2}
	r := NewResolver(dir, quietLogger())

	scoped := proposal(models.SimpleMajority, &building)

	ok, err := r.CanView(ctx, user(10, models.RoleRenter), scoped)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CanView(ctx, user(11, models.RoleRenter), scoped)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.CanView(ctx, nil, proposal(models.SimpleMajority, nil))
	require.NoError(t, err)
	assert.False(t, ok)

	tests := []struct {
		name     string
		u        *User
		building *uint64
		want     bool
	}{
		{"admin anywhere", admin(), &building, true},
		{"manager platform-wide", user(10, models.RoleManager), nil, true},
		{"manager of building", user(10, models.RoleManager), &building, true},
		{"manager of other building", user(11, models.RoleManager), &building, false},
		{"homeowner", user(10, models.RoleHomeowner), nil, false},
		{"anonymous", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := r.CanManage(ctx, tt.u, tt.building)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
