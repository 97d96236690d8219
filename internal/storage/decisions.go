package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tripvoucher/internal"
	"tripvoucher/internal/util"
)

func (d *DB) SaveDecision(excursion string, category internal.Category, origin string) error {
	_, err := d.conn.Exec(`
INSERT INTO decisions (key, excursion, category, origin) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  excursion=excluded.excursion,
  category=excluded.category,
  origin=excluded.origin,
  updatedAt=CURRENT_TIMESTAMP
`, util.DecisionKey(excursion), excursion, string(category), origin)
	return err
}

// GetDecision looks a remembered answer up by excursion text.
func (d *DB) GetDecision(excursion string) (*internal.Decision, error) {
	var dec internal.Decision
	var category string
	err := d.conn.QueryRow(`SELECT key, excursion, category, origin, updatedAt FROM decisions WHERE key = ?`, util.DecisionKey(excursion)).
		Scan(&dec.Key, &dec.Excursion, &category, &dec.Origin, &dec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dec.Category = internal.Category(category)
	return &dec, nil
}

func (d *DB) ListDecisions() ([]internal.Decision, error) {
	rows, err := d.conn.Query(`SELECT key, excursion, category, origin, updatedAt FROM decisions ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Decision
	for rows.Next() {
		var dec internal.Decision
		var category string
		if err := rows.Scan(&dec.Key, &dec.Excursion, &category, &dec.Origin, &dec.UpdatedAt); err != nil {
			return nil, err
		}
		dec.Category = internal.Category(category)
		out = append(out, dec)
	}
	return out, rows.Err()
}

func (d *DB) InsertPendingDecision(emailID *int, excursion string) (internal.PendingDecision, error) {
	p := internal.PendingDecision{
		ID:        uuid.NewString(),
		EmailID:   emailID,
		Key:       util.DecisionKey(excursion),
		Excursion: excursion,
	}
	_, err := d.conn.Exec(`INSERT INTO pending_decisions (id, emailId, key, excursion) VALUES (?, ?, ?, ?)`, p.ID, emailID, p.Key, excursion)
	if err != nil {
		return internal.PendingDecision{}, err
	}
	return p, nil
}

const pendingColumns = `id, emailId, key, excursion, createdAt`

func scanPending(s rowScanner) (internal.PendingDecision, error) {
	var p internal.PendingDecision
	var emailID sql.NullInt64
	if err := s.Scan(&p.ID, &emailID, &p.Key, &p.Excursion, &p.CreatedAt); err != nil {
		return internal.PendingDecision{}, err
	}
	if emailID.Valid {
		id := int(emailID.Int64)
		p.EmailID = &id
	}
	return p, nil
}

// ListPendingDecisions returns open requests oldest first.
func (d *DB) ListPendingDecisions(limit int) ([]internal.PendingDecision, error) {
	rows, err := d.conn.Query(`SELECT `+pendingColumns+` FROM pending_decisions ORDER BY createdAt ASC, rowid ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PendingDecision
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) GetPendingDecision(id string) (*internal.PendingDecision, error) {
	p, err := scanPending(d.conn.QueryRow(`SELECT `+pendingColumns+` FROM pending_decisions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolvePending stores the answer for a pending request and removes every
// open request for the same excursion text. An email left without open
// requests goes back to "fetched" so the next processing pass builds it;
// requeued lists those emails.
func (d *DB) ResolvePending(id string, category internal.Category, origin string) (resolved internal.PendingDecision, requeued []int, err error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return internal.PendingDecision{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	p, err := scanPending(tx.QueryRow(`SELECT `+pendingColumns+` FROM pending_decisions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return internal.PendingDecision{}, nil, fmt.Errorf("pending decision %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return internal.PendingDecision{}, nil, err
	}

	if _, err := tx.Exec(`
INSERT INTO decisions (key, excursion, category, origin) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  excursion=excluded.excursion,
  category=excluded.category,
  origin=excluded.origin,
  updatedAt=CURRENT_TIMESTAMP
`, p.Key, p.Excursion, string(category), origin); err != nil {
		return internal.PendingDecision{}, nil, err
	}

	rows, err := tx.Query(`SELECT DISTINCT emailId FROM pending_decisions WHERE key = ? AND emailId IS NOT NULL`, p.Key)
	if err != nil {
		return internal.PendingDecision{}, nil, err
	}
	var affected []int
	for rows.Next() {
		var emailID int
		if err := rows.Scan(&emailID); err != nil {
			_ = rows.Close()
			return internal.PendingDecision{}, nil, err
		}
		affected = append(affected, emailID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return internal.PendingDecision{}, nil, err
	}
	_ = rows.Close()

	if _, err := tx.Exec(`DELETE FROM pending_decisions WHERE key = ?`, p.Key); err != nil {
		return internal.PendingDecision{}, nil, err
	}

	for _, emailID := range affected {
		var open int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM pending_decisions WHERE emailId = ?`, emailID).Scan(&open); err != nil {
			return internal.PendingDecision{}, nil, err
		}
		if open > 0 {
			continue
		}
		if _, err := tx.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`, internal.EmailFetched, emailID, internal.EmailAwaitingClassification); err != nil {
			return internal.PendingDecision{}, nil, err
		}
		requeued = append(requeued, emailID)
	}

	if err := tx.Commit(); err != nil {
		return internal.PendingDecision{}, nil, err
	}
	return p, requeued, nil
}

func (d *DB) CountPendingForEmail(emailID int) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM pending_decisions WHERE emailId = ?`, emailID).Scan(&n)
	return n, err
}
