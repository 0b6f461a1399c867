package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/venuekit/venuekit/backend-go/internal/db"
	"github.com/venuekit/venuekit/backend-go/internal/document"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
	"github.com/venuekit/venuekit/backend-go/internal/typeid"
)

var (
	ErrNotFound          = errors.New("venue not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNotMember         = errors.New("not a venue member")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyMember     = errors.New("already a member")
	ErrCannotRemoveOwner = errors.New("cannot remove venue owner")
	ErrInvalidDocument   = errors.New("invalid document")
)

// LiveDocuments lets imports reach venues that are open for editing.
type LiveDocuments interface {
	// ImportDocument replaces the document of an open venue and reports
	// whether the venue was open.
	ImportDocument(venueID string, data []byte) (bool, error)
}

type Service struct {
	store db.Store
	keep  int
	live  LiveDocuments
}

// NewService creates a venue service. keep bounds the number of stored
// snapshots per venue; keep <= 0 keeps all of them.
func NewService(store db.Store, keep int) *Service {
	return &Service{store: store, keep: keep}
}

// SetLive routes imports of open venues through live.
func (s *Service) SetLive(live LiveDocuments) {
	s.live = live
}

type Venue struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Document is a stored venue document and its snapshot version.
type Document struct {
	Version  int32           `json:"version"`
	Document json.RawMessage `json:"document"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Venue, error) {
	venueID := typeid.NewVenueID()

	dbVenue, err := s.store.CreateVenue(ctx, db.CreateVenueParams{
		ID:      venueID,
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create venue: %w", err)
	}

	err = s.store.AddVenueMember(ctx, db.AddVenueMemberParams{
		VenueID: venueID,
		UserID:  ownerID,
		Role:    db.RoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	// Seed empty document snapshot
	if err := s.SaveDocument(ctx, venueID, document.NewEmptyDocument(name)); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return dbVenueToVenue(dbVenue), nil
}

func (s *Service) Get(ctx context.Context, venueID, userID string) (*Venue, error) {
	if err := s.checkMembership(ctx, venueID, userID); err != nil {
		return nil, err
	}
	dbVenue, err := s.getVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	return dbVenueToVenue(dbVenue), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Venue, error) {
	dbVenues, err := s.store.ListVenuesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	venues := make([]Venue, len(dbVenues))
	for i, v := range dbVenues {
		venues[i] = *dbVenueToVenue(v)
	}
	return venues, nil
}

func (s *Service) Rename(ctx context.Context, venueID, userID, name string) (*Venue, error) {
	if err := s.checkMembership(ctx, venueID, userID); err != nil {
		return nil, err
	}
	if err := s.store.RenameVenue(ctx, venueID, name); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rename venue: %w", err)
	}
	return s.Get(ctx, venueID, userID)
}

func (s *Service) Delete(ctx context.Context, venueID, userID string) error {
	if _, err := s.requireOwner(ctx, venueID, userID); err != nil {
		return err
	}
	return s.store.DeleteVenue(ctx, venueID)
}

func (s *Service) InviteByEmail(ctx context.Context, venueID, ownerID, inviteeEmail string) error {
	if _, err := s.requireOwner(ctx, venueID, ownerID); err != nil {
		return err
	}

	invitee, err := s.store.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	err = s.store.AddVenueMember(ctx, db.AddVenueMemberParams{
		VenueID: venueID,
		UserID:  invitee.ID,
		Role:    db.RoleEditor,
	})
	if errors.Is(err, db.ErrDuplicate) {
		return ErrAlreadyMember
	}
	return err
}

func (s *Service) ListMembers(ctx context.Context, venueID, userID string) ([]Member, error) {
	if err := s.checkMembership(ctx, venueID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.store.ListVenueMembers(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, venueID, ownerID, targetUserID string) error {
	if _, err := s.requireOwner(ctx, venueID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return ErrCannotRemoveOwner
	}
	err := s.store.RemoveVenueMember(ctx, venueID, targetUserID)
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotMember
	}
	return err
}

// LatestDocument returns the newest stored document of a venue.
func (s *Service) LatestDocument(ctx context.Context, venueID, userID string) (*Document, error) {
	if err := s.checkMembership(ctx, venueID, userID); err != nil {
		return nil, err
	}

	snap, err := s.store.GetLatestSnapshot(ctx, venueID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &Document{Version: snap.Version, Document: snap.Document}, nil
}

// Import validates data as a venue document and stores it as the newest
// snapshot. Open venues receive it as a live operation instead and persist
// it through their next save.
func (s *Service) Import(ctx context.Context, venueID, userID string, data []byte) error {
	if err := s.checkMembership(ctx, venueID, userID); err != nil {
		return err
	}

	doc, err := scene.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if s.live != nil {
		canonical, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		open, err := s.live.ImportDocument(venueID, canonical)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		if open {
			return nil
		}
	}
	return s.SaveDocument(ctx, venueID, doc)
}

// Export returns the newest stored document and a download file name.
func (s *Service) Export(ctx context.Context, venueID, userID string) ([]byte, string, error) {
	latest, err := s.LatestDocument(ctx, venueID, userID)
	if err != nil {
		return nil, "", err
	}
	v, err := s.getVenue(ctx, venueID)
	if err != nil {
		return nil, "", err
	}
	return latest.Document, fileName(v.Name), nil
}

// LoadDocument returns the venue's newest document, or nil when none has
// been stored.
func (s *Service) LoadDocument(ctx context.Context, venueID string) (*document.Document, error) {
	snap, err := s.store.GetLatestSnapshot(ctx, venueID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	doc, err := scene.Decode(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return doc, nil
}

// SaveDocument stores doc as the venue's newest snapshot.
func (s *Service) SaveDocument(ctx context.Context, venueID string, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = db.SaveSnapshot(ctx, s.store, typeid.NewSnapshotID(), venueID, data, s.keep)
	return err
}

// CheckAccess reports whether userID may edit the venue.
func (s *Service) CheckAccess(ctx context.Context, venueID, userID string) error {
	return s.checkMembership(ctx, venueID, userID)
}

func (s *Service) getVenue(ctx context.Context, venueID string) (db.Venue, error) {
	v, err := s.store.GetVenue(ctx, venueID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Venue{}, ErrNotFound
		}
		return db.Venue{}, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

func (s *Service) requireOwner(ctx context.Context, venueID, userID string) (db.Venue, error) {
	v, err := s.getVenue(ctx, venueID)
	if err != nil {
		return db.Venue{}, err
	}
	if v.OwnerID != userID {
		return db.Venue{}, ErrForbidden
	}
	return v, nil
}

func (s *Service) checkMembership(ctx context.Context, venueID, userID string) error {
	_, err := s.store.GetVenueMember(ctx, venueID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func dbVenueToVenue(v db.Venue) *Venue {
	return &Venue{
		ID:        v.ID,
		Name:      v.Name,
		OwnerID:   v.OwnerID,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
