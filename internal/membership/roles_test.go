package membership_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
)

const (
	memberU2 = `{"id":"u2","name":"Grace Hopper","img":"https://img/u2.png","role":"member","joinedAt":"2024-02-01T00:00:00Z"}`
	adminU3  = `{"id":"u3","name":"Katherine Johnson","avatar":"https://img/u3.png","role":"admin","joinedAt":"2024-03-01T00:00:00Z"}`
)

func TestSetRoleRejectsDemotingLastAdmin(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)
	before := f.club("c1")

	_, err := f.svc.SetRole(f.ctx, "c1", "u1", models.RoleMember)
	require.ErrorIs(t, err, membership.ErrLastAdminViolation)

	assert.Zero(t, f.store.writes.Load())
	assert.Equal(t, before.Members, f.club("c1").Members)
}

func TestSetRolePreservesOtherMemberFields(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2, adminU3)
	before := f.club("c1")

	club, err := f.svc.SetRole(f.ctx, "c1", "u1", models.RoleMember)
	require.NoError(t, err)

	require.Equal(t, before.MemberIDs(), club.MemberIDs())
	got := club.Members[0]
	want := before.Members[0]
	assert.Equal(t, models.RoleMember, got.Role)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Img, got.Img)
	assert.Equal(t, want.JoinedAt, got.JoinedAt)

	stored := f.club("c1")
	assert.Equal(t, models.RoleMember, stored.Members[0].Role)
	assert.Equal(t, before.Members[1], stored.Members[1])
	assert.Equal(t, before.Members[2], stored.Members[2])
	assert.Equal(t, 1, stored.AdminCount())
}

func TestSetRolePromotesMember(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)

	club, err := f.svc.SetRole(f.ctx, "c1", "u2", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, club.AdminCount())

	// With two admins the original one may step down.
	club, err = f.svc.SetRole(f.ctx, "c1", "u1", models.RoleMember)
	require.NoError(t, err)
	assert.True(t, club.IsSoleAdmin("u2"))
}

func TestSetRoleErrors(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)

	_, err := f.svc.SetRole(f.ctx, "c1", "nobody", models.RoleAdmin)
	assert.ErrorIs(t, err, membership.ErrMemberNotFound)

	_, err = f.svc.SetRole(f.ctx, "missing", "u2", models.RoleAdmin)
	assert.ErrorIs(t, err, membership.ErrClubNotFound)

	_, err = f.svc.SetRole(f.ctx, "c1", "u2", models.Role("owner"))
	assert.ErrorIs(t, err, membership.ErrInvalidRole)

	assert.Zero(t, f.store.writes.Load())
}

func TestSetRoleSameRoleIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)

	club, err := f.svc.SetRole(f.ctx, "c1", "u1", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, club.IsAdmin("u1"))
	assert.Zero(t, f.store.writes.Load())
}

func TestRequireAdmin(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)

	_, err := f.svc.RequireAdmin(f.ctx, "c1", "u1")
	assert.NoError(t, err)

	_, err = f.svc.RequireAdmin(f.ctx, "c1", "u2")
	assert.ErrorIs(t, err, membership.ErrNotAdmin)

	_, err = f.svc.RequireAdmin(f.ctx, "nope", "u1")
	assert.ErrorIs(t, err, membership.ErrClubNotFound)
}
