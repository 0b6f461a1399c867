package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the single-file Store used for local and single-node setups.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database.
func NewSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() { s.db.Close() }

func now() string { return time.Now().UTC().Format(timeLayout) }

func parseTime(v string) time.Time {
	t, _ := time.Parse(timeLayout, v)
	return t
}

func (s *SQLite) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	created := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Email, arg.Password, arg.DisplayName, created)
	if err != nil {
		return User{}, sqliteError(err)
	}
	return User{
		ID:          arg.ID,
		Email:       arg.Email,
		Password:    arg.Password,
		DisplayName: arg.DisplayName,
		CreatedAt:   parseTime(created),
	}, nil
}

func (s *SQLite) getUser(ctx context.Context, where string, arg any) (User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE `+where+` = ?`, arg,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &created)
	if err != nil {
		return User{}, sqliteError(err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLite) CreateVenue(ctx context.Context, arg CreateVenueParams) (Venue, error) {
	created := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO venues (id, name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Name, arg.OwnerID, created, created)
	if err != nil {
		return Venue{}, sqliteError(err)
	}
	t := parseTime(created)
	return Venue{ID: arg.ID, Name: arg.Name, OwnerID: arg.OwnerID, CreatedAt: t, UpdatedAt: t}, nil
}

func scanVenue(scan func(...any) error) (Venue, error) {
	var v Venue
	var created, updated string
	if err := scan(&v.ID, &v.Name, &v.OwnerID, &created, &updated); err != nil {
		return Venue{}, err
	}
	v.CreatedAt = parseTime(created)
	v.UpdatedAt = parseTime(updated)
	return v, nil
}

func (s *SQLite) GetVenue(ctx context.Context, id string) (Venue, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM venues WHERE id = ?`, id)
	v, err := scanVenue(row.Scan)
	return v, sqliteError(err)
}

func (s *SQLite) ListVenuesForUser(ctx context.Context, userID string) ([]Venue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.name, v.owner_id, v.created_at, v.updated_at
		FROM venues v
		JOIN venue_members m ON m.venue_id = v.id
		WHERE m.user_id = ?
		ORDER BY v.updated_at DESC, v.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	venues := []Venue{}
	for rows.Next() {
		v, err := scanVenue(rows.Scan)
		if err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func (s *SQLite) RenameVenue(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE venues SET name = ?, updated_at = ? WHERE id = ?`, name, now(), id)
	return affected(res, err)
}

func (s *SQLite) DeleteVenue(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id)
	return affected(res, err)
}

func (s *SQLite) AddVenueMember(ctx context.Context, arg AddVenueMemberParams) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO venue_members (venue_id, user_id, role) VALUES (?, ?, ?)`,
		arg.VenueID, arg.UserID, string(arg.Role))
	return sqliteError(err)
}

func (s *SQLite) GetVenueMember(ctx context.Context, venueID, userID string) (Member, error) {
	var m Member
	err := s.db.QueryRowContext(ctx, `
		SELECT m.venue_id, m.user_id, m.role, u.display_name, u.email
		FROM venue_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.venue_id = ? AND m.user_id = ?`, venueID, userID,
	).Scan(&m.VenueID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
	return m, sqliteError(err)
}

func (s *SQLite) ListVenueMembers(ctx context.Context, venueID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.venue_id, m.user_id, m.role, u.display_name, u.email
		FROM venue_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.venue_id = ?
		ORDER BY u.display_name, m.user_id`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.VenueID, &m.UserID, &m.Role, &m.DisplayName, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLite) RemoveVenueMember(ctx context.Context, venueID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM venue_members WHERE venue_id = ? AND user_id = ?`, venueID, userID)
	return affected(res, err)
}

func (s *SQLite) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback()

	created := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO venue_snapshots (id, venue_id, version, document, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.VenueID, arg.Version, arg.Document, created)
	if err != nil {
		return Snapshot{}, sqliteError(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE venues SET updated_at = ? WHERE id = ?`, created, arg.VenueID); err != nil {
		return Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ID:        arg.ID,
		VenueID:   arg.VenueID,
		Version:   arg.Version,
		Document:  arg.Document,
		CreatedAt: parseTime(created),
	}, nil
}

func (s *SQLite) GetLatestSnapshot(ctx context.Context, venueID string) (Snapshot, error) {
	var snap Snapshot
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, venue_id, version, document, created_at
		FROM venue_snapshots
		WHERE venue_id = ?
		ORDER BY version DESC
		LIMIT 1`, venueID,
	).Scan(&snap.ID, &snap.VenueID, &snap.Version, &snap.Document, &created)
	if err != nil {
		return Snapshot{}, sqliteError(err)
	}
	snap.CreatedAt = parseTime(created)
	return snap, nil
}

func (s *SQLite) PruneSnapshots(ctx context.Context, venueID string, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM venue_snapshots
		WHERE venue_id = ?1 AND version NOT IN (
			SELECT version FROM venue_snapshots
			WHERE venue_id = ?1
			ORDER BY version DESC
			LIMIT ?2
		)`, venueID, keep)
	return err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqlErr *sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.ExtendedCode() {
		case sqlite3.CONSTRAINT_UNIQUE, sqlite3.CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}
