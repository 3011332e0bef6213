package membership_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bookclurb/clurb-api/internal/docstore"
	"github.com/bookclurb/clurb-api/internal/membership"
	"github.com/bookclurb/clurb-api/internal/models"
	"github.com/bookclurb/clurb-api/internal/repository"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// countingStore records every write that reaches the backend.
type countingStore struct {
	docstore.Store
	writes atomic.Int64
}

func (c *countingStore) Set(ctx context.Context, path string, v interface{}) error {
	c.writes.Add(1)
	return c.Store.Set(ctx, path, v)
}

func (c *countingStore) SetIfUnchanged(ctx context.Context, path, version string, v interface{}) (bool, error) {
	c.writes.Add(1)
	return c.Store.SetIfUnchanged(ctx, path, version, v)
}

func (c *countingStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	c.writes.Add(1)
	return c.Store.Update(ctx, path, fields)
}

func (c *countingStore) Remove(ctx context.Context, path string) error {
	c.writes.Add(1)
	return c.Store.Remove(ctx, path)
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	mem     *docstore.Memory
	store   *countingStore
	clubs   repository.ClubRepository
	users   repository.UserRepository
	invites repository.InviteRepository
	svc     *membership.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := docstore.NewMemory()
	store := &countingStore{Store: mem}
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		mem:     mem,
		store:   store,
		clubs:   repository.NewClubRepository(store, 5),
		users:   repository.NewUserRepository(store, 5),
		invites: repository.NewInviteRepository(store, 5),
	}
	f.svc = membership.NewService(f.clubs, f.users, f.invites, zerolog.Nop(),
		membership.WithClock(func() time.Time { return fixedNow }),
		membership.WithCascadeConcurrency(2),
	)
	return f
}

func (f *fixture) seed(path, body string) {
	f.t.Helper()
	require.NoError(f.t, f.mem.Set(f.ctx, path, json.RawMessage(body)))
}

// seedClub stores a club with one admin (u1) and any extra members.
func (f *fixture) seedClub(id string, extraMembers ...string) {
	f.t.Helper()
	members := `{"id":"u1","name":"Ada Lovelace","img":"https://img/u1.png","role":"admin","joinedAt":"2024-01-01T00:00:00Z","bookData":{"b1":{"rating":5}}}`
	for _, m := range extraMembers {
		members += "," + m
	}
	f.seed("clubs/"+id, `{"name":"Night Readers","description":"","isPublic":false,"booksRead":["b1"],"members":[`+members+`],"memberCount":`+itoa(1+len(extraMembers))+`}`)
}

func (f *fixture) seedInvite(clubID, inviteID, email string, status models.InviteStatus) {
	f.t.Helper()
	invite := models.Invite{
		ID:          inviteID,
		Email:       email,
		ClubID:      clubID,
		ClubName:    "Night Readers",
		InviterName: "Ada",
		InvitedBy:   "u1",
		CreatedAt:   fixedNow.Add(-time.Hour).Unix(),
		Status:      status,
	}
	require.NoError(f.t, f.mem.Set(f.ctx, "club_invites/"+clubID+"/"+inviteID, invite))
}

func (f *fixture) club(id string) models.Club {
	f.t.Helper()
	club, err := f.clubs.GetClub(f.ctx, id)
	require.NoError(f.t, err)
	return club
}

func (f *fixture) profile(id string) models.UserProfile {
	f.t.Helper()
	profile, err := f.users.GetProfile(f.ctx, id)
	require.NoError(f.t, err)
	return profile
}

func (f *fixture) invite(clubID, inviteID string) models.Invite {
	f.t.Helper()
	invite, err := f.invites.GetInvite(f.ctx, clubID, inviteID)
	require.NoError(f.t, err)
	return invite
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
