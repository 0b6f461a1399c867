// Package db persists users, venues, venue members and document snapshots.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type VenueRole string

const (
	RoleOwner  VenueRole = "owner"
	RoleEditor VenueRole = "editor"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

type Venue struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Member struct {
	VenueID     string
	UserID      string
	Role        VenueRole
	DisplayName string
	Email       string
}

type Snapshot struct {
	ID        string
	VenueID   string
	Version   int32
	Document  []byte
	CreatedAt time.Time
}

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

type CreateVenueParams struct {
	ID      string
	Name    string
	OwnerID string
}

type AddVenueMemberParams struct {
	VenueID string
	UserID  string
	Role    VenueRole
}

type CreateSnapshotParams struct {
	ID       string
	VenueID  string
	Version  int32
	Document []byte
}

// Store is implemented by the Postgres and SQLite backends. Lookups that
// match nothing return ErrNotFound; unique violations return ErrDuplicate.
type Store interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateVenue(ctx context.Context, arg CreateVenueParams) (Venue, error)
	GetVenue(ctx context.Context, id string) (Venue, error)
	ListVenuesForUser(ctx context.Context, userID string) ([]Venue, error)
	RenameVenue(ctx context.Context, id, name string) error
	DeleteVenue(ctx context.Context, id string) error

	AddVenueMember(ctx context.Context, arg AddVenueMemberParams) error
	GetVenueMember(ctx context.Context, venueID, userID string) (Member, error)
	ListVenueMembers(ctx context.Context, venueID string) ([]Member, error)
	RemoveVenueMember(ctx context.Context, venueID, userID string) error

	CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error)
	GetLatestSnapshot(ctx context.Context, venueID string) (Snapshot, error)
	// PruneSnapshots deletes all but the newest keep snapshots of a venue.
	PruneSnapshots(ctx context.Context, venueID string, keep int) error

	Close()
}

// Open connects to the backend named by driver: "postgres" uses url,
// "sqlite" uses path.
func Open(ctx context.Context, driver, url, path string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, url)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// SaveSnapshot stores doc as the next version of the venue's document and
// prunes old versions down to keep (keep <= 0 keeps everything).
func SaveSnapshot(ctx context.Context, s Store, id, venueID string, doc []byte, keep int) (Snapshot, error) {
	next := int32(1)
	latest, err := s.GetLatestSnapshot(ctx, venueID)
	switch {
	case err == nil:
		next = latest.Version + 1
	case !errors.Is(err, ErrNotFound):
		return Snapshot{}, fmt.Errorf("get latest snapshot: %w", err)
	}

	snap, err := s.CreateSnapshot(ctx, CreateSnapshotParams{
		ID:       id,
		VenueID:  venueID,
		Version:  next,
		Document: doc,
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}

	if keep > 0 {
		if err := s.PruneSnapshots(ctx, venueID, keep); err != nil {
			return snap, fmt.Errorf("prune snapshots: %w", err)
		}
	}
	return snap, nil
}
