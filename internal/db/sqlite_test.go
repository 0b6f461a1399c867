package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func seedVenue(t *testing.T, s Store) (User, Venue) {
	t.Helper()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, CreateUserParams{ID: "user_1", Email: "a@example.com", Password: "hash", DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	v, err := s.CreateVenue(ctx, CreateVenueParams{ID: "venue_1", Name: "Hall", OwnerID: u.ID})
	if err != nil {
		t.Fatalf("CreateVenue: %v", err)
	}
	if err := s.AddVenueMember(ctx, AddVenueMemberParams{VenueID: v.ID, UserID: u.ID, Role: RoleOwner}); err != nil {
		t.Fatalf("AddVenueMember: %v", err)
	}
	return u, v
}

func TestSQLiteUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, _ := seedVenue(t, s)

	got, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID || got.DisplayName != "Ada" || got.CreatedAt.IsZero() {
		t.Errorf("user = %+v", got)
	}
	if _, err := s.GetUserByID(ctx, "user_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}

	_, err = s.CreateUser(ctx, CreateUserParams{ID: "user_2", Email: "a@example.com", Password: "x", DisplayName: "Dup"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email err = %v, want ErrDuplicate", err)
	}
}

func TestSQLiteVenuesAndMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, v := seedVenue(t, s)

	guest, err := s.CreateUser(ctx, CreateUserParams{ID: "user_2", Email: "b@example.com", Password: "hash", DisplayName: "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddVenueMember(ctx, AddVenueMemberParams{VenueID: v.ID, UserID: guest.ID, Role: RoleEditor}); err != nil {
		t.Fatal(err)
	}
	err = s.AddVenueMember(ctx, AddVenueMemberParams{VenueID: v.ID, UserID: guest.ID, Role: RoleEditor})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second invite err = %v, want ErrDuplicate", err)
	}

	m, err := s.GetVenueMember(ctx, v.ID, guest.ID)
	if err != nil {
		t.Fatalf("GetVenueMember: %v", err)
	}
	if m.Role != RoleEditor || m.Email != "b@example.com" {
		t.Errorf("member = %+v", m)
	}

	members, err := s.ListVenueMembers(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].DisplayName != "Ada" || members[1].DisplayName != "Bob" {
		t.Errorf("members = %+v", members)
	}

	venues, err := s.ListVenuesForUser(ctx, guest.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(venues) != 1 || venues[0].ID != v.ID || venues[0].OwnerID != owner.ID {
		t.Errorf("venues = %+v", venues)
	}

	if err := s.RenameVenue(ctx, v.ID, "Arena"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetVenue(ctx, v.ID)
	if err != nil || got.Name != "Arena" {
		t.Errorf("GetVenue = %+v, %v", got, err)
	}

	if err := s.RemoveVenueMember(ctx, v.ID, guest.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetVenueMember(ctx, v.ID, guest.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("removed member err = %v", err)
	}
	if err := s.RemoveVenueMember(ctx, v.ID, guest.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove err = %v", err)
	}
}

func TestSQLiteSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, v := seedVenue(t, s)

	if _, err := s.GetLatestSnapshot(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty latest err = %v", err)
	}

	for i := 1; i <= 5; i++ {
		doc := fmt.Appendf(nil, `{"name":"v%d"}`, i)
		snap, err := SaveSnapshot(ctx, s, fmt.Sprintf("snap_%d", i), v.ID, doc, 3)
		if err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
		if snap.Version != int32(i) {
			t.Errorf("version = %d, want %d", snap.Version, i)
		}
	}

	latest, err := s.GetLatestSnapshot(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Version != 5 || string(latest.Document) != `{"name":"v5"}` {
		t.Errorf("latest = v%d %s", latest.Version, latest.Document)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM venue_snapshots WHERE venue_id = ?`, v.ID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("kept %d snapshots, want 3", count)
	}
}

func TestSQLiteDeleteVenueCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, v := seedVenue(t, s)
	if _, err := SaveSnapshot(ctx, s, "snap_1", v.ID, []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteVenue(ctx, v.ID); err != nil {
		t.Fatalf("DeleteVenue: %v", err)
	}
	if _, err := s.GetVenue(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("venue err = %v", err)
	}
	if _, err := s.GetVenueMember(ctx, v.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("member err = %v", err)
	}
	if _, err := s.GetLatestSnapshot(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("snapshot err = %v", err)
	}
	if err := s.DeleteVenue(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSQLiteFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	seedVenue(t, s)
	s.Close()

	s, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetVenue(context.Background(), "venue_1"); err != nil {
		t.Errorf("GetVenue after reopen: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", "", ""); err == nil {
		t.Error("expected error for unknown driver")
	}
}
