package membership_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
)

func grace() models.Identity {
	return models.Identity{
		ID:            "u2",
		Email:         "grace@example.com",
		EmailVerified: true,
		PhotoURL:      "https://img/u2.png",
	}
}

func sentInvite() models.Invite {
	return models.Invite{ID: "inv1", ClubID: "c1", ClubName: "Night Readers", InviterName: "Ada", Status: models.InviteStatusSent}
}

func TestCompleteInviteAcceptanceAdmitsMember(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)

	err := f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), "Grace Brewster Hopper")
	require.NoError(t, err)

	club := f.club("c1")
	require.Len(t, club.Members, 2)
	assert.Equal(t, 2, club.MemberCount)
	added := club.Members[1]
	assert.Equal(t, "u2", added.ID)
	assert.Equal(t, "Grace Brewster Hopper", added.Name)
	assert.Equal(t, "https://img/u2.png", added.Img)
	assert.Equal(t, models.RoleMember, added.Role)
	assert.Equal(t, "2026-03-14T09:30:00Z", added.JoinedAt)

	profile := f.profile("u2")
	assert.Equal(t, models.ClubIDs{"c1"}, profile.Clubs)
	assert.Equal(t, "Grace", profile.FirstName)
	assert.Equal(t, "Brewster Hopper", profile.LastName)

	invite := f.invite("c1", "inv1")
	assert.Equal(t, models.InviteStatusAccepted, invite.Status)
	assert.Equal(t, "u2", invite.AcceptedBy)
	assert.Equal(t, fixedNow.Unix(), invite.AcceptedAt)
}

func TestCompleteInviteAcceptanceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)

	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))
	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))

	club := f.club("c1")
	count := 0
	for _, m := range club.Members {
		if m.ID == "u2" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, club.MemberCount)
	assert.Equal(t, models.ClubIDs{"c1"}, f.profile("u2").Clubs)
}

func TestCompleteInviteAcceptanceUnionsProfileClubs(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)
	f.seed("users/u2", `{"clubs":["other","c1"],"first_name":"Grace","hardcoverApiToken":"sealed:v1:abc"}`)

	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))

	profile := f.profile("u2")
	assert.Equal(t, models.ClubIDs{"other", "c1"}, profile.Clubs)
	assert.Equal(t, "sealed:v1:abc", profile.HardcoverAPIToken)
}

func TestCompleteInviteAcceptanceKeepsForeignFields(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)

	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))

	var raw map[string]json.RawMessage
	_, err := f.mem.Get(f.ctx, "clubs/c1", &raw)
	require.NoError(t, err)
	assert.JSONEq(t, `["b1"]`, string(raw["booksRead"]))
	assert.Contains(t, string(raw["members"]), `"bookData":{"b1":{"rating":5}}`)
}

func TestCompleteInviteAcceptanceRejectsEmailMismatchWithoutWrites(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "a@example.com", models.InviteStatusSent)

	invite := sentInvite()
	invite.Email = "a@example.com"
	identity := models.Identity{ID: "u2", Email: "b@example.com"}

	err := f.svc.CompleteInviteAcceptance(f.ctx, identity, invite, "")
	require.ErrorIs(t, err, membership.ErrEmailMismatch)
	assert.Zero(t, f.store.writes.Load())
	assert.Len(t, f.club("c1").Members, 1)
}

func TestCompleteInviteAcceptanceChecksStoredEmailRestriction(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "a@example.com", models.InviteStatusSent)

	// The caller-supplied copy lost its restriction; the stored record still applies.
	err := f.svc.CompleteInviteAcceptance(f.ctx, models.Identity{ID: "u2", Email: "b@example.com"}, sentInvite(), "")
	require.ErrorIs(t, err, membership.ErrEmailMismatch)
	assert.Zero(t, f.store.writes.Load())
}

func TestCompleteInviteAcceptanceRequiresVerifiedEmail(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "grace@example.com", models.InviteStatusSent)

	invite := sentInvite()
	invite.Email = "grace@example.com"
	unverified := grace()
	unverified.EmailVerified = false

	err := f.svc.CompleteInviteAcceptance(f.ctx, unverified, invite, "")
	require.ErrorIs(t, err, membership.ErrEmailMismatch)
	assert.Zero(t, f.store.writes.Load())

	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), invite, ""))
	assert.True(t, f.club("c1").HasMember("u2"))
}

func TestCompleteInviteAcceptanceOpenInviteIgnoresVerification(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)

	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, models.Identity{ID: "u4"}, sentInvite(), ""))
	assert.True(t, f.club("c1").HasMember("u4"))
}

func TestCompleteInviteAcceptanceReplacesNamesAsPair(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)
	f.seed("users/u2", `{"clubs":[],"first_name":"Old","last_name":"Hopper"}`)

	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))

	profile := f.profile("u2")
	assert.Equal(t, "grace", profile.FirstName)
	assert.Empty(t, profile.LastName)

	var raw map[string]json.RawMessage
	_, err := f.mem.Get(f.ctx, "users/u2", &raw)
	require.NoError(t, err)
	assert.NotContains(t, raw, "last_name")
}

func TestCompleteInviteAcceptanceMatchesEmailCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "Grace@Example.COM", models.InviteStatusSent)

	invite := sentInvite()
	invite.Email = "Grace@Example.COM"
	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), invite, ""))
	assert.True(t, f.club("c1").HasMember("u2"))
}

func TestCompleteInviteAcceptanceInvalidInvites(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(f *fixture)
		invite models.Invite
	}{
		{
			name:   "missing club id",
			invite: models.Invite{ID: "inv1"},
		},
		{
			name:   "missing invite id",
			invite: models.Invite{ClubID: "c1"},
		},
		{
			name:   "malformed id",
			invite: models.Invite{ID: "inv/1", ClubID: "c1"},
		},
		{
			name:   "unknown invite",
			setup:  func(f *fixture) { f.seedClub("c1") },
			invite: sentInvite(),
		},
		{
			name: "invite never sent",
			setup: func(f *fixture) {
				f.seedClub("c1")
				f.seedInvite("c1", "inv1", "", models.InviteStatusPending)
			},
			invite: sentInvite(),
		},
		{
			name: "club deleted",
			setup: func(f *fixture) {
				f.seedInvite("c1", "inv1", "", models.InviteStatusSent)
			},
			invite: sentInvite(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			err := f.svc.CompleteInviteAcceptance(f.ctx, grace(), tc.invite, "")
			require.ErrorIs(t, err, membership.ErrInvalidInvite)
			assert.Zero(t, f.store.writes.Load())
		})
	}
}

func TestCompleteInviteAcceptanceRejectsReplayByAnotherIdentity(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)
	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))
	writes := f.store.writes.Load()

	intruder := models.Identity{ID: "u9", Email: "mallory@example.com"}
	err := f.svc.CompleteInviteAcceptance(f.ctx, intruder, sentInvite(), "")
	require.ErrorIs(t, err, membership.ErrInvalidInvite)
	assert.Equal(t, writes, f.store.writes.Load())
	assert.False(t, f.club("c1").HasMember("u9"))

	invite := f.invite("c1", "inv1")
	assert.Equal(t, models.InviteStatusAccepted, invite.Status)
	assert.Equal(t, "u2", invite.AcceptedBy)
}

func TestCompleteInviteAcceptanceStopsOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.seedClub("c1")
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)
	outage := errors.New("connection reset")
	f.mem.FailOn("set", "users/u2", outage)

	err := f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), "")
	require.ErrorIs(t, err, membership.ErrStoreUnavailable)
	require.ErrorIs(t, err, outage)

	// Step one stays committed; step three never ran.
	assert.True(t, f.club("c1").HasMember("u2"))
	assert.Equal(t, models.InviteStatusSent, f.invite("c1", "inv1").Status)

	f.mem.FailOn("set", "users/u2", nil)
	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))
	assert.Len(t, f.club("c1").Members, 2)
	assert.Equal(t, models.ClubIDs{"c1"}, f.profile("u2").Clubs)
	assert.Equal(t, models.InviteStatusAccepted, f.invite("c1", "inv1").Status)
}

func TestCompleteInviteAcceptanceReadsMembersStoredAsObject(t *testing.T) {
	f := newFixture(t)
	f.seed("clubs/c1", `{"name":"Keyed","members":{"-Nb":{"id":"u1","name":"Ada","role":"admin"}},"memberCount":1}`)
	f.seedInvite("c1", "inv1", "", models.InviteStatusSent)

	require.NoError(t, f.svc.CompleteInviteAcceptance(f.ctx, grace(), sentInvite(), ""))

	club := f.club("c1")
	assert.Equal(t, []string{"u1", "u2"}, club.MemberIDs())
	assert.Equal(t, 2, club.MemberCount)
}
