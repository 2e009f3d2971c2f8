package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelmap/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullI64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Write paths
// ---------------------------------------------------------------------------

func (r *Repo) UpsertSupplierHotel(ctx context.Context, h domain.SupplierHotel) (int64, error) {
	res, err := r.db.ExecContext(ctx, upsertSupplierHotelSQL,
		h.SupplierCode,
		h.SupplierHotelID,
		h.Name,
		h.NameNormalized,
		valStr(h.AddressLine1),
		valStr(h.City),
		valStr(h.CountryCode),
		valStr(h.PostalCode),
		valF64(h.Lat),
		valF64(h.Lon),
		valStr(h.Phone),
		valStr(h.ChainCode),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) InsertMasterHotel(ctx context.Context, m domain.MasterHotel) (int64, error) {
	status := m.Status
	if status == "" {
		status = domain.HotelActive
	}
	res, err := r.db.ExecContext(ctx, insertMasterHotelSQL,
		m.Name, m.NameNormalized,
		valStr(m.AddressLine1), valStr(m.City), valStr(m.CountryCode),
		valStr(m.PostalCode), valF64(m.Lat), valF64(m.Lon),
		valStr(m.Phone), valStr(m.ChainCode), string(status),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// mappingState is the per-row snapshot every CAS asserts against.
type mappingState struct {
	supplierCode string
	masterID     sql.NullInt64
	status       domain.MappingStatus
}

func readMappingState(ctx context.Context, tx *sql.Tx, supplierHotelID int64) (mappingState, error) {
	var st mappingState
	var status string
	err := tx.QueryRowContext(ctx, supplierMappingStateSQL, supplierHotelID).
		Scan(&st.supplierCode, &st.masterID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return st, domain.ErrNotFound
	}
	if err != nil {
		return st, err
	}
	st.status = domain.MappingStatus(status)
	return st, nil
}

func requireMaster(ctx context.Context, tx *sql.Tx, masterHotelID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, masterExistsSQL, masterHotelID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *Repo) CommitAutoMapping(ctx context.Context, am domain.AutoMapping) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		st, err := readMappingState(ctx, tx, am.SupplierHotelID)
		if err != nil {
			return err
		}
		if !st.status.CanTransition(domain.StatusAutoMapped) {
			return domain.ErrConflict
		}
		if err := requireMaster(ctx, tx, am.MasterHotelID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, autoMapSQL,
			am.MasterHotelID, am.Score, am.Method, am.SupplierHotelID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConflict
		}
		_, err = tx.ExecContext(ctx, insertHistorySQL,
			am.SupplierHotelID, st.supplierCode, nil, am.MasterHotelID,
			string(domain.ActionMapped), am.Score, am.Method, am.Actor)
		return err
	})
}

func (r *Repo) QueueForReview(ctx context.Context, supplierHotelID int64, supplierCode string, cs []domain.CandidateScore) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		st, err := readMappingState(ctx, tx, supplierHotelID)
		if err != nil {
			return err
		}
		if !st.status.CanTransition(domain.StatusPendingReview) {
			return domain.ErrConflict
		}
		for _, c := range cs {
			if _, err := tx.ExecContext(ctx, insertCandidateSQL,
				supplierHotelID, supplierCode, c.MasterHotelID, c.Score,
				string(c.CriteriaJSON)); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, queueReviewSQL, supplierHotelID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConflict
		}
		return nil
	})
}

func (r *Repo) ConfirmMapping(ctx context.Context, c domain.Confirmation) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		st, err := readMappingState(ctx, tx, c.SupplierHotelID)
		if err != nil {
			return err
		}
		if !st.status.CanTransition(domain.StatusManuallyMapped) {
			return domain.ErrConflict
		}
		if err := requireMaster(ctx, tx, c.MasterHotelID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, confirmMappingSQL,
			c.MasterHotelID, "manual", c.SupplierHotelID, string(st.status), st.masterID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConflict
		}
		if _, err := tx.ExecContext(ctx, resolveCandidatesSQL, c.MasterHotelID, c.SupplierHotelID); err != nil {
			return err
		}
		action := domain.ActionMapped
		if st.masterID.Valid {
			action = domain.ActionRemapped
		}
		_, err = tx.ExecContext(ctx, insertHistorySQL,
			c.SupplierHotelID, st.supplierCode, st.masterID, c.MasterHotelID,
			string(action), 1.0, "manual", c.Actor)
		return err
	})
}

func (r *Repo) RejectCandidate(ctx context.Context, supplierHotelID, masterHotelID int64) (int, error) {
	var remaining int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, rejectCandidateSQL, supplierHotelID, masterHotelID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, candidateExistsSQL, supplierHotelID, masterHotelID).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrNotFound
			}
			// Already adjudicated by a concurrent reviewer.
			return domain.ErrConflict
		}
		return tx.QueryRowContext(ctx, countPendingCandidatesSQL, supplierHotelID).Scan(&remaining)
	})
	return remaining, err
}

func (r *Repo) MarkNoMatch(ctx context.Context, supplierHotelID int64, actor string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		st, err := readMappingState(ctx, tx, supplierHotelID)
		if err != nil {
			return err
		}
		if !st.status.CanTransition(domain.StatusNoMatch) {
			return domain.ErrConflict
		}
		res, err := tx.ExecContext(ctx, markNoMatchSQL,
			supplierHotelID, string(st.status), st.masterID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConflict
		}
		// Nothing pending may survive a closed record; -1 rejects them all.
		if _, err := tx.ExecContext(ctx, resolveCandidatesSQL, int64(-1), supplierHotelID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insertHistorySQL,
			supplierHotelID, st.supplierCode, st.masterID, nil,
			string(domain.ActionUnmapped), nil, "manual", actor)
		return err
	})
}

func (r *Repo) CreateMasterAndMap(ctx context.Context, supplierHotelID int64, m domain.MasterHotel, actor string) (int64, error) {
	var masterID int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		st, err := readMappingState(ctx, tx, supplierHotelID)
		if err != nil {
			return err
		}
		if !st.status.CanTransition(domain.StatusManuallyMapped) {
			return domain.ErrConflict
		}
		res, err := tx.ExecContext(ctx, insertMasterHotelSQL,
			m.Name, m.NameNormalized,
			valStr(m.AddressLine1), valStr(m.City), valStr(m.CountryCode),
			valStr(m.PostalCode), valF64(m.Lat), valF64(m.Lon),
			valStr(m.Phone), valStr(m.ChainCode), string(domain.HotelActive),
		)
		if err != nil {
			return err
		}
		masterID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		upd, err := tx.ExecContext(ctx, confirmMappingSQL,
			masterID, "manual_new_master", supplierHotelID, string(st.status), st.masterID)
		if err != nil {
			return err
		}
		if n, _ := upd.RowsAffected(); n == 0 {
			// Rolls back the freshly inserted master as well; no orphans.
			return domain.ErrConflict
		}
		if _, err := tx.ExecContext(ctx, resolveCandidatesSQL, masterID, supplierHotelID); err != nil {
			return err
		}
		action := domain.ActionMapped
		if st.masterID.Valid {
			action = domain.ActionRemapped
		}
		_, err = tx.ExecContext(ctx, insertHistorySQL,
			supplierHotelID, st.supplierCode, st.masterID, masterID,
			string(action), 1.0, "manual_new_master", actor)
		return err
	})
	if err != nil {
		return 0, err
	}
	return masterID, nil
}

// ---------------------------------------------------------------------------
// Read paths
// ---------------------------------------------------------------------------

func (r *Repo) GetSupplierHotel(ctx context.Context, id int64) (domain.SupplierHotel, error) {
	row := r.db.QueryRowContext(ctx, getSupplierHotelSQL, id)

	var h domain.SupplierHotel
	var (
		normalized                               sql.NullString
		addr, city, country, postal, phone, chain sql.NullString
		lat, lon, conf                           sql.NullFloat64
		masterID                                 sql.NullInt64
		status, method                           sql.NullString
		mappedAt                                 sql.NullTime
	)
	err := row.Scan(&h.ID, &h.SupplierCode, &h.SupplierHotelID, &h.Name, &normalized,
		&addr, &city, &country, &postal, &lat, &lon, &phone, &chain,
		&masterID, &status, &conf, &method, &mappedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SupplierHotel{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SupplierHotel{}, err
	}
	if normalized.Valid {
		h.NameNormalized = normalized.String
	}
	h.AddressLine1 = nullStr(addr)
	h.City = nullStr(city)
	h.CountryCode = nullStr(country)
	h.PostalCode = nullStr(postal)
	h.Lat = nullF64(lat)
	h.Lon = nullF64(lon)
	h.Phone = nullStr(phone)
	h.ChainCode = nullStr(chain)
	h.MasterHotelID = nullI64(masterID)
	h.MappingStatus = domain.MappingStatus(status.String)
	h.Confidence = nullF64(conf)
	h.MappingMethod = nullStr(method)
	h.MappedAt = nullTime(mappedAt)
	return h, nil
}

func scanMasterHotel(scan func(dest ...any) error) (domain.MasterHotel, error) {
	var m domain.MasterHotel
	var (
		normalized                               sql.NullString
		addr, city, country, postal, phone, chain sql.NullString
		lat, lon                                 sql.NullFloat64
		status                                   string
	)
	err := scan(&m.ID, &m.Name, &normalized, &addr, &city, &country,
		&postal, &lat, &lon, &phone, &chain, &status)
	if err != nil {
		return m, err
	}
	if normalized.Valid {
		m.NameNormalized = normalized.String
	}
	m.AddressLine1 = nullStr(addr)
	m.City = nullStr(city)
	m.CountryCode = nullStr(country)
	m.PostalCode = nullStr(postal)
	m.Lat = nullF64(lat)
	m.Lon = nullF64(lon)
	m.Phone = nullStr(phone)
	m.ChainCode = nullStr(chain)
	m.Status = domain.HotelStatus(status)
	return m, nil
}

func (r *Repo) GetMasterHotel(ctx context.Context, id int64) (domain.MasterHotel, error) {
	row := r.db.QueryRowContext(ctx, getMasterHotelSQL, id)
	m, err := scanMasterHotel(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MasterHotel{}, domain.ErrNotFound
	}
	return m, err
}

func (r *Repo) ListCandidates(ctx context.Context, q domain.CandidateQuery) ([]domain.MasterHotel, error) {
	sqlStr := listCandidatesBaseSQL
	args := []any{}
	if q.CountryCode != nil && *q.CountryCode != "" {
		sqlStr += " AND country_code = ?"
		args = append(args, *q.CountryCode)
	}
	if q.BBoxDegrees > 0 && q.Lat != nil && q.Lon != nil {
		sqlStr += " AND latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?"
		args = append(args,
			*q.Lat-q.BBoxDegrees, *q.Lat+q.BBoxDegrees,
			*q.Lon-q.BBoxDegrees, *q.Lon+q.BBoxDegrees)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}
	sqlStr += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MasterHotel
	for rows.Next() {
		m, err := scanMasterHotel(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) ListMasterHotels(ctx context.Context, limit int) ([]domain.MasterHotel, error) {
	rows, err := r.db.QueryContext(ctx, listMasterHotelsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MasterHotel
	for rows.Next() {
		m, err := scanMasterHotel(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) ListPendingReviews(ctx context.Context, limit int) ([]domain.PendingReview, error) {
	rows, err := r.db.QueryContext(ctx, listPendingReviewsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PendingReview
	for rows.Next() {
		var p domain.PendingReview
		var city, country sql.NullString
		if err := rows.Scan(&p.SupplierHotelID, &p.SupplierCode, &p.Name,
			&city, &country, &p.CandidateCount); err != nil {
			return nil, err
		}
		p.City = nullStr(city)
		p.CountryCode = nullStr(country)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListPotentialMatches(ctx context.Context, supplierHotelID int64) ([]domain.PotentialMatchDetail, error) {
	rows, err := r.db.QueryContext(ctx, listPotentialMatchesSQL, supplierHotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PotentialMatchDetail
	for rows.Next() {
		var d domain.PotentialMatchDetail
		var criteria sql.NullString
		var status string
		var addr, city, postal, phone, country sql.NullString
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&d.ID, &d.SupplierHotelID, &d.SupplierCode,
			&d.MasterHotelID, &d.Score, &criteria, &status,
			&d.MasterName, &addr, &city, &postal, &lat, &lon, &phone, &country); err != nil {
			return nil, err
		}
		if criteria.Valid {
			d.CriteriaJSON = []byte(criteria.String)
		}
		d.Status = domain.MatchStatus(status)
		d.MasterAddress = nullStr(addr)
		d.MasterCity = nullStr(city)
		d.MasterPostalCode = nullStr(postal)
		d.MasterLat = nullF64(lat)
		d.MasterLon = nullF64(lon)
		d.MasterPhone = nullStr(phone)
		d.MasterCountryCode = nullStr(country)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) ListMappingHistory(ctx context.Context, supplierHotelID int64) ([]domain.MappingHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, listMappingHistorySQL, supplierHotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MappingHistoryEntry
	for rows.Next() {
		var e domain.MappingHistoryEntry
		var oldID, newID sql.NullInt64
		var conf sql.NullFloat64
		var method sql.NullString
		var action string
		if err := rows.Scan(&e.ID, &e.SupplierHotelID, &e.SupplierCode,
			&oldID, &newID, &action, &conf, &method, &e.PerformedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OldMasterHotelID = nullI64(oldID)
		e.NewMasterHotelID = nullI64(newID)
		e.Action = domain.HistoryAction(action)
		e.Confidence = nullF64(conf)
		if method.Valid {
			e.MappingMethod = method.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) MappingStats(ctx context.Context) (domain.MappingStats, error) {
	var st domain.MappingStats

	if err := r.db.QueryRowContext(ctx, statsSuppliersSQL).Scan(&st.TotalSuppliers); err != nil {
		return st, err
	}

	st.ByStatus = make(map[domain.MappingStatus]int)
	rows, err := r.db.QueryContext(ctx, statsByStatusSQL)
	if err != nil {
		return st, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return st, err
		}
		st.ByStatus[domain.MappingStatus(status)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	rows, err = r.db.QueryContext(ctx, statsBySupplierSQL)
	if err != nil {
		return st, err
	}
	for rows.Next() {
		var s domain.SupplierStats
		if err := rows.Scan(&s.SupplierCode, &s.TotalHotels, &s.MappedHotels); err != nil {
			rows.Close()
			return st, err
		}
		if s.TotalHotels > 0 {
			s.MappingPercentage = float64(s.MappedHotels) / float64(s.TotalHotels) * 100
		}
		st.BySupplier = append(st.BySupplier, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = r.db.QueryRowContext(ctx, statsPendingSQL).Scan(&st.PendingReviews)
	return st, err
}

func (r *Repo) ExportMappings(ctx context.Context, q domain.ExportQuery) ([]domain.MappingExportRow, error) {
	sqlStr := exportMappingsBaseSQL
	args := []any{}
	if q.Status != nil {
		sqlStr += " AND sh.mapping_status = ?"
		args = append(args, string(*q.Status))
	}
	if q.SupplierCode != nil && *q.SupplierCode != "" {
		sqlStr += " AND sh.supplier_code = ?"
		args = append(args, *q.SupplierCode)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}
	sqlStr += " ORDER BY sh.supplier_code, sh.supplier_hotel_id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MappingExportRow
	for rows.Next() {
		var row domain.MappingExportRow
		var conf sql.NullFloat64
		var method sql.NullString
		var mappedAt sql.NullTime
		var status string
		if err := rows.Scan(&row.SupplierCode, &row.SupplierHotelID, &row.SupplierName,
			&row.MasterHotelID, &row.MasterName, &status, &conf, &method, &mappedAt); err != nil {
			return nil, err
		}
		row.Status = domain.MappingStatus(status)
		row.Confidence = nullF64(conf)
		row.MappingMethod = nullStr(method)
		row.MappedAt = nullTime(mappedAt)
		out = append(out, row)
	}
	return out, rows.Err()
}
