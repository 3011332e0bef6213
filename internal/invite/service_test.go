package invite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/notification"
	"github.com/bookclurb/clurb-api/internal/repository"
)

type fakeMailer struct {
	sent []notification.InviteEmail
	err  error
}

func (m *fakeMailer) SendInvite(_ context.Context, email notification.InviteEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

var (
	admin  = models.Identity{ID: "u1", DisplayName: "Ada Lovelace", Email: "ada@example.com"}
	member = models.Identity{ID: "u2", DisplayName: "Grace Hopper"}
)

func newTestService(t *testing.T) (*Service, *fakeMailer, repository.InviteRepository) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	require.NoError(t, store.Set(ctx, "clubs/c1", json.RawMessage(
		`{"name":"Night Readers","members":[{"id":"u1","name":"Ada","role":"admin"},{"id":"u2","name":"Grace","role":"member"}],"memberCount":2}`)))

	clubs := repository.NewClubRepository(store, 5)
	users := repository.NewUserRepository(store, 5)
	invites := repository.NewInviteRepository(store, 5)
	members := membership.NewService(clubs, users, invites, zerolog.Nop())
	mailer := &fakeMailer{}

	svc := NewService(invites, members, mailer, "https://clurb.test/", zerolog.Nop())
	svc.now = func() time.Time { return time.Unix(1750000000, 0) }
	return svc, mailer, invites
}

func TestSignupLink(t *testing.T) {
	link := SignupLink("https://clurb.test/", "i1", "c1", "grace+books@example.com")
	assert.Equal(t, "https://clurb.test/signup?inviteId=i1&clubId=c1&email=grace%2Bbooks%40example.com", link)
}

func TestCreateInvite(t *testing.T) {
	svc, _, _ := newTestService(t)

	invite, err := svc.Create(context.Background(), admin, "c1", " grace@example.com ", "")
	require.NoError(t, err)
	assert.NotEmpty(t, invite.ID)
	assert.Equal(t, "grace@example.com", invite.Email)
	assert.Equal(t, "Night Readers", invite.ClubName)
	assert.Equal(t, "Ada Lovelace", invite.InviterName)
	assert.Equal(t, "u1", invite.InvitedBy)
	assert.Equal(t, models.InviteStatusPending, invite.Status)
	assert.Equal(t, int64(1750000000), invite.CreatedAt)
}

func TestCreateInviteRejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, member, "c1", "grace@example.com", "")
	assert.ErrorIs(t, err, membership.ErrNotAdmin)

	_, err = svc.Create(ctx, admin, "c1", "not-an-email", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Create(ctx, admin, "missing", "grace@example.com", "")
	assert.ErrorIs(t, err, membership.ErrClubNotFound)

	// Every invite is addressed; there are no open links.
	_, err = svc.Create(ctx, admin, "c1", "  ", "")
	assert.ErrorIs(t, err, ErrMissingFields)
	list, err := svc.List(ctx, admin, "c1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSendInviteMarksSent(t *testing.T) {
	svc, mailer, invites := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, admin, "c1", "grace@example.com", "Ada")
	require.NoError(t, err)

	sent, err := svc.Send(ctx, admin, models.SendInviteRequest{
		Email: "grace@example.com", ClubID: "c1", ClubName: "Night Readers", InviterName: "Ada", InviteID: created.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusSent, sent.Status)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "grace@example.com", mailer.sent[0].To)
	assert.Equal(t, SignupLink("https://clurb.test", created.ID, "c1", "grace@example.com"), mailer.sent[0].SignupLink)

	stored, err := invites.GetInvite(ctx, "c1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1750000000), stored.SentAt)
}

func TestSendInviteRecordsFailure(t *testing.T) {
	svc, mailer, invites := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, admin, "c1", "grace@example.com", "Ada")
	require.NoError(t, err)
	mailer.err = errors.New("535 authentication failed")

	_, err = svc.Send(ctx, admin, models.SendInviteRequest{
		Email: "grace@example.com", ClubID: "c1", ClubName: "Night Readers", InviteID: created.ID,
	})
	require.ErrorIs(t, err, ErrDeliveryFailed)

	stored, err := invites.GetInvite(ctx, "c1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusFailed, stored.Status)
	assert.Equal(t, "535 authentication failed", stored.Error)

	// A retry after the relay recovers moves the invite on to sent.
	mailer.err = nil
	sent, err := svc.Send(ctx, admin, models.SendInviteRequest{
		Email: "grace@example.com", ClubID: "c1", ClubName: "Night Readers", InviteID: created.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusSent, sent.Status)
	assert.Empty(t, sent.Error)
}

func TestSendInviteValidation(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, admin, "c1", "grace@example.com", "Ada")
	require.NoError(t, err)

	cases := []struct {
		name  string
		actor models.Identity
		req   models.SendInviteRequest
		want  error
	}{
		{"missing invite id", admin, models.SendInviteRequest{Email: "grace@example.com", ClubID: "c1", ClubName: "N"}, ErrMissingFields},
		{"bad email", admin, models.SendInviteRequest{Email: "grace", ClubID: "c1", ClubName: "N", InviteID: created.ID}, ErrInvalidEmail},
		{"not admin", member, models.SendInviteRequest{Email: "grace@example.com", ClubID: "c1", ClubName: "N", InviteID: created.ID}, membership.ErrNotAdmin},
		{"unknown invite", admin, models.SendInviteRequest{Email: "grace@example.com", ClubID: "c1", ClubName: "N", InviteID: "nope"}, ErrInviteNotFound},
		{"other address", admin, models.SendInviteRequest{Email: "eve@example.com", ClubID: "c1", ClubName: "N", InviteID: created.ID}, ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Send(ctx, tc.actor, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, mailer.sent)
}

func TestValidateInvite(t *testing.T) {
	svc, _, invites := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, admin, "c1", "grace@example.com", "Ada")
	require.NoError(t, err)

	res, err := svc.ValidateInvite(ctx, "nope", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.InviteValidation{Valid: false, Message: "Invite not found"}, res)

	res, err = svc.ValidateInvite(ctx, created.ID, "c1")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Invite is not active. Status: pending", res.Message)

	_, err = invites.MarkInviteSent(ctx, "c1", created.ID, time.Now())
	require.NoError(t, err)
	res, err = svc.ValidateInvite(ctx, created.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.InviteValidation{
		Valid:       true,
		Message:     "Invite is valid and active",
		ClubID:      "c1",
		ClubName:    "Night Readers",
		InviterName: "Ada",
		Email:       "grace@example.com",
	}, res)

	_, err = invites.MarkInviteAccepted(ctx, "c1", created.ID, "u9", time.Now())
	require.NoError(t, err)
	res, err = svc.ValidateInvite(ctx, created.ID, "c1")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Invite is not active. Status: accepted", res.Message)

	_, err = svc.ValidateInvite(ctx, "", "c1")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestListInvitesRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, admin, "c1", "grace@example.com", "")
	require.NoError(t, err)

	list, err := svc.List(ctx, admin, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.List(ctx, member, "c1")
	assert.ErrorIs(t, err, membership.ErrNotAdmin)
}
