package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"hotelmap/internal/domain"
)

// memRepo is an in-memory MappingRepository for service tests. Mutating
// transitions follow the same compare-and-swap discipline as the SQL store:
// the state is snapshotted, then the commit re-checks it and fails with
// ErrConflict when a concurrent writer got there first. beforeCommit, when
// set, runs between the snapshot and the commit so tests can stage races.
type memRepo struct {
	mu       sync.Mutex
	nextSup  int64
	nextMas  int64
	nextCand int64

	suppliers map[int64]*domain.SupplierHotel
	byKey     map[string]int64
	masters   map[int64]*domain.MasterHotel
	cands     map[int64][]*domain.PotentialMatch
	history   []domain.MappingHistoryEntry

	listErr      error // injected ListCandidates failure
	beforeCommit func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		suppliers: map[int64]*domain.SupplierHotel{},
		byKey:     map[string]int64{},
		masters:   map[int64]*domain.MasterHotel{},
		cands:     map[int64][]*domain.PotentialMatch{},
	}
}

func supKey(code, id string) string { return code + "|" + id }

func ptrEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *memRepo) UpsertSupplierHotel(_ context.Context, h domain.SupplierHotel) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := supKey(h.SupplierCode, h.SupplierHotelID)
	if id, ok := r.byKey[key]; ok {
		cur := r.suppliers[id]
		cur.Name = h.Name
		cur.NameNormalized = h.NameNormalized
		cur.AddressLine1 = h.AddressLine1
		cur.City = h.City
		cur.CountryCode = h.CountryCode
		cur.PostalCode = h.PostalCode
		cur.Lat, cur.Lon = h.Lat, h.Lon
		cur.Phone = h.Phone
		cur.ChainCode = h.ChainCode
		return id, nil
	}
	r.nextSup++
	h.ID = r.nextSup
	h.MappingStatus = domain.StatusUnmapped
	r.suppliers[h.ID] = &h
	r.byKey[key] = h.ID
	return h.ID, nil
}

func (r *memRepo) InsertMasterHotel(_ context.Context, m domain.MasterHotel) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertMasterLocked(m), nil
}

func (r *memRepo) insertMasterLocked(m domain.MasterHotel) int64 {
	r.nextMas++
	m.ID = r.nextMas
	if m.Status == "" {
		m.Status = domain.HotelActive
	}
	r.masters[m.ID] = &m
	return m.ID
}

func (r *memRepo) appendHistoryLocked(shID int64, code string, oldID, newID *int64,
	action domain.HistoryAction, conf *float64, method, actor string) {
	r.history = append(r.history, domain.MappingHistoryEntry{
		ID:               int64(len(r.history) + 1),
		SupplierHotelID:  shID,
		SupplierCode:     code,
		OldMasterHotelID: oldID,
		NewMasterHotelID: newID,
		Action:           action,
		Confidence:       conf,
		MappingMethod:    method,
		PerformedBy:      actor,
		CreatedAt:        time.Now(),
	})
}

func (r *memRepo) CommitAutoMapping(_ context.Context, am domain.AutoMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.suppliers[am.SupplierHotelID]
	if !ok {
		return domain.ErrNotFound
	}
	if sh.MappingStatus != domain.StatusUnmapped || sh.MasterHotelID != nil {
		return domain.ErrConflict
	}
	if _, ok := r.masters[am.MasterHotelID]; !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	mid, score, method := am.MasterHotelID, am.Score, am.Method
	sh.MasterHotelID = &mid
	sh.MappingStatus = domain.StatusAutoMapped
	sh.Confidence = &score
	sh.MappingMethod = &method
	sh.MappedAt = &now
	r.appendHistoryLocked(sh.ID, sh.SupplierCode, nil, &mid, domain.ActionMapped, &score, method, am.Actor)
	return nil
}

func (r *memRepo) QueueForReview(_ context.Context, supplierHotelID int64, supplierCode string, cs []domain.CandidateScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.suppliers[supplierHotelID]
	if !ok {
		return domain.ErrNotFound
	}
	if !sh.MappingStatus.CanTransition(domain.StatusPendingReview) {
		return domain.ErrConflict
	}
	for _, c := range cs {
		r.nextCand++
		r.cands[supplierHotelID] = append(r.cands[supplierHotelID], &domain.PotentialMatch{
			ID:              r.nextCand,
			SupplierHotelID: supplierHotelID,
			SupplierCode:    supplierCode,
			MasterHotelID:   c.MasterHotelID,
			Score:           c.Score,
			CriteriaJSON:    c.CriteriaJSON,
			Status:          domain.MatchPending,
		})
	}
	sh.MappingStatus = domain.StatusPendingReview
	return nil
}

func (r *memRepo) resolveCandidatesLocked(supplierHotelID, acceptedMasterID int64) {
	for _, c := range r.cands[supplierHotelID] {
		if c.Status != domain.MatchPending {
			continue
		}
		if c.MasterHotelID == acceptedMasterID {
			c.Status = domain.MatchAccepted
		} else {
			c.Status = domain.MatchRejected
		}
	}
}

func (r *memRepo) ConfirmMapping(_ context.Context, c domain.Confirmation) error {
	r.mu.Lock()
	sh, ok := r.suppliers[c.SupplierHotelID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	snapStatus, snapMaster := sh.MappingStatus, sh.MasterHotelID
	if !snapStatus.CanTransition(domain.StatusManuallyMapped) {
		r.mu.Unlock()
		return domain.ErrConflict
	}
	if _, ok := r.masters[c.MasterHotelID]; !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	hook := r.beforeCommit
	r.mu.Unlock()

	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sh.MappingStatus != snapStatus || !ptrEq(sh.MasterHotelID, snapMaster) {
		return domain.ErrConflict
	}
	now := time.Now()
	mid := c.MasterHotelID
	conf := 1.0
	method := "manual"
	sh.MasterHotelID = &mid
	sh.MappingStatus = domain.StatusManuallyMapped
	sh.Confidence = &conf
	sh.MappingMethod = &method
	sh.MappedAt = &now
	r.resolveCandidatesLocked(sh.ID, mid)
	action := domain.ActionMapped
	if snapMaster != nil {
		action = domain.ActionRemapped
	}
	r.appendHistoryLocked(sh.ID, sh.SupplierCode, snapMaster, &mid, action, &conf, method, c.Actor)
	return nil
}

func (r *memRepo) RejectCandidate(_ context.Context, supplierHotelID, masterHotelID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target *domain.PotentialMatch
	for _, c := range r.cands[supplierHotelID] {
		if c.MasterHotelID == masterHotelID {
			target = c
			break
		}
	}
	if target == nil {
		return 0, domain.ErrNotFound
	}
	if target.Status != domain.MatchPending {
		return 0, domain.ErrConflict
	}
	target.Status = domain.MatchRejected
	remaining := 0
	for _, c := range r.cands[supplierHotelID] {
		if c.Status == domain.MatchPending {
			remaining++
		}
	}
	return remaining, nil
}

func (r *memRepo) MarkNoMatch(_ context.Context, supplierHotelID int64, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.suppliers[supplierHotelID]
	if !ok {
		return domain.ErrNotFound
	}
	if !sh.MappingStatus.CanTransition(domain.StatusNoMatch) {
		return domain.ErrConflict
	}
	old := sh.MasterHotelID
	sh.MasterHotelID = nil
	sh.MappingStatus = domain.StatusNoMatch
	sh.Confidence = nil
	sh.MappingMethod = nil
	sh.MappedAt = nil
	r.resolveCandidatesLocked(sh.ID, -1)
	r.appendHistoryLocked(sh.ID, sh.SupplierCode, old, nil, domain.ActionUnmapped, nil, "manual", actor)
	return nil
}

func (r *memRepo) CreateMasterAndMap(_ context.Context, supplierHotelID int64, m domain.MasterHotel, actor string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.suppliers[supplierHotelID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if !sh.MappingStatus.CanTransition(domain.StatusManuallyMapped) {
		return 0, domain.ErrConflict
	}
	old := sh.MasterHotelID
	masterID := r.insertMasterLocked(m)
	now := time.Now()
	conf := 1.0
	method := "manual_new_master"
	sh.MasterHotelID = &masterID
	sh.MappingStatus = domain.StatusManuallyMapped
	sh.Confidence = &conf
	sh.MappingMethod = &method
	sh.MappedAt = &now
	r.resolveCandidatesLocked(sh.ID, masterID)
	action := domain.ActionMapped
	if old != nil {
		action = domain.ActionRemapped
	}
	r.appendHistoryLocked(sh.ID, sh.SupplierCode, old, &masterID, action, &conf, method, actor)
	return masterID, nil
}

func (r *memRepo) GetSupplierHotel(_ context.Context, id int64) (domain.SupplierHotel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.suppliers[id]
	if !ok {
		return domain.SupplierHotel{}, domain.ErrNotFound
	}
	return *sh, nil
}

func (r *memRepo) GetMasterHotel(_ context.Context, id int64) (domain.MasterHotel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.masters[id]
	if !ok {
		return domain.MasterHotel{}, domain.ErrNotFound
	}
	return *m, nil
}

func (r *memRepo) ListCandidates(_ context.Context, q domain.CandidateQuery) ([]domain.MasterHotel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.MasterHotel
	for _, m := range r.masters {
		if m.Status != domain.HotelActive {
			continue
		}
		if q.CountryCode != nil && m.CountryCode != nil && *m.CountryCode != *q.CountryCode {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memRepo) ListMasterHotels(_ context.Context, limit int) ([]domain.MasterHotel, error) {
	return r.ListCandidates(context.Background(), domain.CandidateQuery{Limit: limit})
}

func (r *memRepo) ListPendingReviews(_ context.Context, limit int) ([]domain.PendingReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PendingReview
	for _, sh := range r.suppliers {
		if sh.MappingStatus != domain.StatusPendingReview {
			continue
		}
		n := 0
		for _, c := range r.cands[sh.ID] {
			if c.Status == domain.MatchPending {
				n++
			}
		}
		out = append(out, domain.PendingReview{
			SupplierHotelID: sh.ID,
			SupplierCode:    sh.SupplierCode,
			Name:            sh.Name,
			City:            sh.City,
			CountryCode:     sh.CountryCode,
			CandidateCount:  n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateCount > out[j].CandidateCount })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ListPotentialMatches(_ context.Context, supplierHotelID int64) ([]domain.PotentialMatchDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PotentialMatchDetail
	for _, c := range r.cands[supplierHotelID] {
		if c.Status != domain.MatchPending {
			continue
		}
		m := r.masters[c.MasterHotelID]
		out = append(out, domain.PotentialMatchDetail{
			PotentialMatch: *c,
			MasterName:     m.Name,
			MasterAddress:  m.AddressLine1,
			MasterCity:     m.City,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (r *memRepo) ListMappingHistory(_ context.Context, supplierHotelID int64) ([]domain.MappingHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MappingHistoryEntry
	for _, h := range r.history {
		if h.SupplierHotelID == supplierHotelID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memRepo) MappingStats(_ context.Context) (domain.MappingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := domain.MappingStats{ByStatus: map[domain.MappingStatus]int{}}
	for _, sh := range r.suppliers {
		st.TotalSuppliers++
		st.ByStatus[sh.MappingStatus]++
		if sh.MappingStatus == domain.StatusPendingReview {
			st.PendingReviews++
		}
	}
	return st, nil
}

func (r *memRepo) ExportMappings(_ context.Context, q domain.ExportQuery) ([]domain.MappingExportRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MappingExportRow
	for _, sh := range r.suppliers {
		if !sh.MappingStatus.Mapped() {
			continue
		}
		if q.Status != nil && sh.MappingStatus != *q.Status {
			continue
		}
		if q.SupplierCode != nil && sh.SupplierCode != *q.SupplierCode {
			continue
		}
		m := r.masters[*sh.MasterHotelID]
		out = append(out, domain.MappingExportRow{
			SupplierCode:    sh.SupplierCode,
			SupplierHotelID: sh.SupplierHotelID,
			SupplierName:    sh.Name,
			MasterHotelID:   m.ID,
			MasterName:      m.Name,
			Status:          sh.MappingStatus,
			Confidence:      sh.Confidence,
			MappingMethod:   sh.MappingMethod,
			MappedAt:        sh.MappedAt,
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// memCache is a map-backed Cache; values round-trip through JSON the same
// way the Redis adapter stores them.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	dels int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any, _ int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	c.sets++
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.dels++
	return nil
}

var _ domain.MappingRepository = (*memRepo)(nil)
var _ domain.Cache = (*memCache)(nil)

func strp(s string) *string    { return &s }
func f64p(f float64) *float64  { return &f }
func errf(format string, a ...any) error { return fmt.Errorf(format, a...) }
