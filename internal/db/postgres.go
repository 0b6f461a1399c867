package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgxpool-backed Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and applies the schema.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password, display_name, created_at`,
		arg.ID, arg.Email, arg.Password, arg.DisplayName,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, pgError(err)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, pgError(err)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, pgError(err)
}

func (p *Postgres) CreateVenue(ctx context.Context, arg CreateVenueParams) (Venue, error) {
	var v Venue
	err := p.pool.QueryRow(ctx, `
		INSERT INTO venues (id, name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, owner_id, created_at, updated_at`,
		arg.ID, arg.Name, arg.OwnerID,
	).Scan(&v.ID, &v.Name, &v.OwnerID, &v.CreatedAt, &v.UpdatedAt)
	return v, pgError(err)
}

func (p *Postgres) GetVenue(ctx context.Context, id string) (Venue, error) {
	var v Venue
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM venues WHERE id = $1`, id,
	).Scan(&v.ID, &v.Name, &v.OwnerID, &v.CreatedAt, &v.UpdatedAt)
	return v, pgError(err)
}

func (p *Postgres) ListVenuesForUser(ctx context.Context, userID string) ([]Venue, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT v.id, v.name, v.owner_id, v.created_at, v.updated_at
		FROM venues v
		JOIN venue_members m ON m.venue_id = v.id
		WHERE m.user_id = $1
		ORDER BY v.updated_at DESC, v.id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Venue, error) {
		var v Venue
		err := row.Scan(&v.ID, &v.Name, &v.OwnerID, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	})
}

func (p *Postgres) RenameVenue(ctx context.Context, id, name string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE venues SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteVenue(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM venues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AddVenueMember(ctx context.Context, arg AddVenueMemberParams) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO venue_members (venue_id, user_id, role) VALUES ($1, $2, $3)`,
		arg.VenueID, arg.UserID, string(arg.Role))
	return pgError(err)
}

func (p *Postgres) GetVenueMember(ctx context.Context, venueID, userID string) (Member, error) {
	var m Member
	err := p.pool.QueryRow(ctx, `
		SELECT m.venue_id, m.user_id, m.role, u.display_name, u.email
		FROM venue_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.venue_id = $1 AND m.user_id = $2`, venueID, userID,
	).Scan(&m.VenueID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
	return m, pgError(err)
}

func (p *Postgres) ListVenueMembers(ctx context.Context, venueID string) ([]Member, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT m.venue_id, m.user_id, m.role, u.display_name, u.email
		FROM venue_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.venue_id = $1
		ORDER BY u.display_name, m.user_id`, venueID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Member, error) {
		var m Member
		err := row.Scan(&m.VenueID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
		return m, err
	})
}

func (p *Postgres) RemoveVenueMember(ctx context.Context, venueID, userID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM venue_members WHERE venue_id = $1 AND user_id = $2`, venueID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback(ctx)

	var s Snapshot
	err = tx.QueryRow(ctx, `
		INSERT INTO venue_snapshots (id, venue_id, version, document)
		VALUES ($1, $2, $3, $4)
		RETURNING id, venue_id, version, document, created_at`,
		arg.ID, arg.VenueID, arg.Version, arg.Document,
	).Scan(&s.ID, &s.VenueID, &s.Version, &s.Document, &s.CreatedAt)
	if err != nil {
		return Snapshot{}, pgError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE venues SET updated_at = now() WHERE id = $1`, arg.VenueID); err != nil {
		return Snapshot{}, err
	}
	return s, tx.Commit(ctx)
}

func (p *Postgres) GetLatestSnapshot(ctx context.Context, venueID string) (Snapshot, error) {
	var s Snapshot
	err := p.pool.QueryRow(ctx, `
		SELECT id, venue_id, version, document, created_at
		FROM venue_snapshots
		WHERE venue_id = $1
		ORDER BY version DESC
		LIMIT 1`, venueID,
	).Scan(&s.ID, &s.VenueID, &s.Version, &s.Document, &s.CreatedAt)
	return s, pgError(err)
}

func (p *Postgres) PruneSnapshots(ctx context.Context, venueID string, keep int) error {
	_, err := p.pool.Exec(ctx, `
		DELETE FROM venue_snapshots
		WHERE venue_id = $1 AND version NOT IN (
			SELECT version FROM venue_snapshots
			WHERE venue_id = $1
			ORDER BY version DESC
			LIMIT $2
		)`, venueID, keep)
	return err
}

func pgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
