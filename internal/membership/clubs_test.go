package membership_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateClubMakesCreatorSoleAdmin(t *testing.T) {
	f := newFixture(t)
	creator := models.Identity{ID: "u1", DisplayName: "Ada Lovelace", PhotoURL: "https://img/u1.png"}

	club, err := f.svc.CreateClub(f.ctx, creator, membership.ClubSettings{
		Name:        "  Analytical Readers ",
		Description: strPtr("Engines and novels"),
		IsPublic:    boolPtr(true),
	})
	require.NoError(t, err)
	require.NotEmpty(t, club.ID)

	stored := f.club(club.ID)
	assert.Equal(t, "Analytical Readers", stored.Name)
	assert.Equal(t, "Engines and novels", stored.Description)
	assert.True(t, stored.IsPublic)
	assert.Equal(t, 1, stored.MemberCount)
	assert.True(t, stored.IsSoleAdmin("u1"))
	assert.Equal(t, "Ada Lovelace", stored.Members[0].Name)

	profile := f.profile("u1")
	assert.Equal(t, models.ClubIDs{club.ID}, profile.Clubs)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, "Lovelace", profile.LastName)
}

func TestCreateClubKeepsExistingNames(t *testing.T) {
	f := newFixture(t)
	f.seed("users/u1", `{"clubs":["old"],"first_name":"Augusta","last_name":"King"}`)

	club, err := f.svc.CreateClub(f.ctx, models.Identity{ID: "u1", DisplayName: "Ada Lovelace"}, membership.ClubSettings{Name: "Readers"})
	require.NoError(t, err)

	profile := f.profile("u1")
	assert.Equal(t, models.ClubIDs{"old", club.ID}, profile.Clubs)
	assert.Equal(t, "Augusta", profile.FirstName)
	assert.Equal(t, "King", profile.LastName)
}

func TestCreateClubRequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateClub(f.ctx, models.Identity{ID: "u1"}, membership.ClubSettings{Name: "   "})
	assert.ErrorIs(t, err, membership.ErrInvalidSettings)
	assert.Zero(t, f.store.writes.Load())
}

func TestUpdateSettingsLeavesUnsetFields(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)

	club, err := f.svc.UpdateSettings(f.ctx, "c1", membership.ClubSettings{Name: "Day Readers", CoverColor: strPtr("#ffcc00")})
	require.NoError(t, err)
	assert.Equal(t, "Day Readers", club.Name)
	assert.Equal(t, "#ffcc00", club.CoverColor)
	assert.False(t, club.IsPublic)
	assert.Len(t, club.Members, 2)

	_, err = f.svc.UpdateSettings(f.ctx, "missing", membership.ClubSettings{Name: "x"})
	assert.ErrorIs(t, err, membership.ErrClubNotFound)
}

func TestRemoveMemberUnwindsBothSides(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)
	f.seed("users/u2", `{"clubs":["c1","c9"]}`)

	require.NoError(t, f.svc.RemoveMember(f.ctx, "c1", "u2"))

	club := f.club("c1")
	assert.False(t, club.HasMember("u2"))
	assert.Equal(t, 1, club.MemberCount)
	assert.Equal(t, models.ClubIDs{"c9"}, f.profile("u2").Clubs)
}

func TestSoleAdminCannotLeave(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1", memberU2)
	f.seed("users/u1", `{"clubs":["c1"]}`)

	err := f.svc.LeaveClub(f.ctx, "c1", "u1")
	require.ErrorIs(t, err, membership.ErrLastAdminViolation)
	assert.True(t, f.club("c1").HasMember("u1"))
	assert.True(t, f.profile("u1").Clubs.Contains("c1"))
}

func TestLeaveClubCleansDanglingProfile(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seed("users/u7", `{"clubs":["c1"]}`)

	require.NoError(t, f.svc.LeaveClub(f.ctx, "c1", "u7"))
	assert.Empty(t, f.profile("u7").Clubs)
}

func TestLeaveDeletedClubDropsStaleID(t *testing.T) {
	f := newFixture(t)
	f.seed("users/u7", `{"clubs":["gone","c2"]}`)

	require.NoError(t, f.svc.LeaveClub(f.ctx, "gone", "u7"))
	assert.Equal(t, models.ClubIDs{"c2"}, f.profile("u7").Clubs)

	assert.ErrorIs(t, f.svc.LeaveClub(f.ctx, "gone", "u7"), membership.ErrClubNotFound)
}

func TestAddMemberUsesProfileName(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seed("users/u5", `{"clubs":[],"first_name":"Mary","last_name":"Jackson"}`)

	club, err := f.svc.AddMember(f.ctx, "c1", "u5", "")
	require.NoError(t, err)
	idx := club.MemberIndex("u5")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "Mary Jackson", club.Members[idx].Name)
	assert.Equal(t, models.RoleMember, club.Members[idx].Role)
	assert.Equal(t, models.ClubIDs{"c1"}, f.profile("u5").Clubs)

	// Adding again is harmless.
	club, err = f.svc.AddMember(f.ctx, "c1", "u5", "")
	require.NoError(t, err)
	assert.Equal(t, 2, club.MemberCount)

	_, err = f.svc.AddMember(f.ctx, "c1", "ghost", "")
	assert.ErrorIs(t, err, membership.ErrUserNotFound)
}

func TestCompleteOnboarding(t *testing.T) {
	f := newFixture(t)
	f.seed("users/u1", `{"clubs":["c1"]}`)

	profile, err := f.svc.CompleteOnboarding(f.ctx, "u1")
	require.NoError(t, err)
	assert.True(t, profile.OnboardingCompleted)
	assert.Equal(t, "2026-03-14T09:30:00Z", profile.OnboardingCompletedAt)
	assert.Equal(t, models.ClubIDs{"c1"}, profile.Clubs)

	writes := f.store.writes.Load()
	_, err = f.svc.CompleteOnboarding(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, writes, f.store.writes.Load())
}
