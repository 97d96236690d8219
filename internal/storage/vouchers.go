package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tripvoucher/internal"
)

const voucherColumns = `id, emailId, source, sourceRef, tripRef, participants, dayCount, activityCount, itineraryJson, createdAt`

func scanVoucher(s rowScanner) (internal.VoucherRow, error) {
	var (
		v       internal.VoucherRow
		emailID sql.NullInt64
		blob    string
	)
	if err := s.Scan(&v.ID, &emailID, &v.Source, &v.SourceRef, &v.TripRef, &v.Participants, &v.DayCount, &v.ActivityCount, &blob, &v.CreatedAt); err != nil {
		return internal.VoucherRow{}, err
	}
	if emailID.Valid {
		id := int(emailID.Int64)
		v.EmailID = &id
	}
	if err := json.Unmarshal([]byte(blob), &v.Itinerary); err != nil {
		return internal.VoucherRow{}, fmt.Errorf("voucher %d itinerary: %w", v.ID, err)
	}
	return v, nil
}

// InsertVoucher stores a built itinerary. The summary columns are derived
// from it.
func (d *DB) InsertVoucher(emailID *int, source internal.ItemSource, sourceRef string, it internal.Itinerary) (int64, error) {
	blob, err := json.Marshal(it)
	if err != nil {
		return 0, err
	}
	result, err := d.conn.Exec(`
INSERT INTO vouchers (emailId, source, sourceRef, tripRef, participants, dayCount, activityCount, itineraryJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, emailID, string(source), sourceRef, it.TripRef, it.Participants, len(it.Days), it.ActivityCount(), string(blob))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) GetVoucher(id int) (*internal.VoucherRow, error) {
	v, err := scanVoucher(d.conn.QueryRow(`SELECT `+voucherColumns+` FROM vouchers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *DB) MustVoucher(id int) (internal.VoucherRow, error) {
	v, err := d.GetVoucher(id)
	if err != nil {
		return internal.VoucherRow{}, err
	}
	if v == nil {
		return internal.VoucherRow{}, fmt.Errorf("voucher %d: %w", id, ErrNotFound)
	}
	return *v, nil
}

func (d *DB) GetVoucherByEmail(emailID int) (*internal.VoucherRow, error) {
	v, err := scanVoucher(d.conn.QueryRow(`SELECT `+voucherColumns+` FROM vouchers WHERE emailId = ? ORDER BY id DESC LIMIT 1`, emailID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *DB) ListVouchers(limit int) ([]internal.VoucherRow, error) {
	rows, err := d.conn.Query(`SELECT `+voucherColumns+` FROM vouchers ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.VoucherRow
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
