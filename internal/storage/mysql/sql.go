package mysql

// -----------------------------------------------------------------------------
// WRITE PATHS
// -----------------------------------------------------------------------------

// Re-import refreshes descriptive fields only; the mapping columns are owned
// by the transactional transitions below and never touched here. The
// LAST_INSERT_ID(id) assignment makes LastInsertId() return the existing row
// id on the duplicate-key path.
const upsertSupplierHotelSQL = `
INSERT INTO supplier_hotels
  (supplier_code, supplier_hotel_id, hotel_name, hotel_name_normalized,
   address_line1, city, country_code, postal_code, latitude, longitude,
   phone_number, chain_code, mapping_status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'unmapped')
ON DUPLICATE KEY UPDATE
  id                    = LAST_INSERT_ID(id),
  hotel_name            = VALUES(hotel_name),
  hotel_name_normalized = VALUES(hotel_name_normalized),
  address_line1         = VALUES(address_line1),
  city                  = VALUES(city),
  country_code          = VALUES(country_code),
  postal_code           = VALUES(postal_code),
  latitude              = VALUES(latitude),
  longitude             = VALUES(longitude),
  phone_number          = VALUES(phone_number),
  chain_code            = VALUES(chain_code),
  updated_at            = CURRENT_TIMESTAMP
`

const insertMasterHotelSQL = `
INSERT INTO master_hotels
  (hotel_name, hotel_name_normalized, address_line1, city, country_code,
   postal_code, latitude, longitude, phone_number, chain_code, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Current mapping state, read inside every mutating transaction so the
// compare-and-set below can assert it has not moved.
const supplierMappingStateSQL = `
SELECT supplier_code, master_hotel_id, mapping_status
FROM supplier_hotels
WHERE id = ?
`

const autoMapSQL = `
UPDATE supplier_hotels
SET master_hotel_id = ?,
    mapping_status = 'auto_mapped',
    mapping_confidence_score = ?,
    mapping_method = ?,
    mapped_at = CURRENT_TIMESTAMP
WHERE id = ? AND mapping_status = 'unmapped' AND master_hotel_id IS NULL
`

// <=> is MySQL's NULL-safe equality; the WHERE clause is the optimistic CAS
// that serializes mapping mutations per supplier hotel.
const confirmMappingSQL = `
UPDATE supplier_hotels
SET master_hotel_id = ?,
    mapping_status = 'manually_mapped',
    mapping_confidence_score = 1.0,
    mapping_method = ?,
    mapped_at = CURRENT_TIMESTAMP
WHERE id = ? AND mapping_status = ? AND master_hotel_id <=> ?
`

const queueReviewSQL = `
UPDATE supplier_hotels
SET mapping_status = 'pending_review'
WHERE id = ? AND mapping_status = 'unmapped' AND master_hotel_id IS NULL
`

const markNoMatchSQL = `
UPDATE supplier_hotels
SET mapping_status = 'no_match_available',
    master_hotel_id = NULL,
    mapping_confidence_score = NULL,
    mapping_method = NULL,
    mapped_at = NULL
WHERE id = ? AND mapping_status = ? AND master_hotel_id <=> ?
`

const insertCandidateSQL = `
INSERT IGNORE INTO potential_hotel_matches
  (supplier_hotel_id, supplier_code, master_hotel_id, match_score, match_criteria, status)
VALUES
  (?, ?, ?, ?, ?, 'pending')
`

// Accepting one candidate rejects its pending siblings in the same statement.
const resolveCandidatesSQL = `
UPDATE potential_hotel_matches
SET status = CASE WHEN master_hotel_id = ? THEN 'accepted' ELSE 'rejected' END
WHERE supplier_hotel_id = ? AND status = 'pending'
`

const rejectCandidateSQL = `
UPDATE potential_hotel_matches
SET status = 'rejected'
WHERE supplier_hotel_id = ? AND master_hotel_id = ? AND status = 'pending'
`

const countPendingCandidatesSQL = `
SELECT COUNT(*) FROM potential_hotel_matches
WHERE supplier_hotel_id = ? AND status = 'pending'
`

const candidateExistsSQL = `
SELECT COUNT(*) FROM potential_hotel_matches
WHERE supplier_hotel_id = ? AND master_hotel_id = ?
`

const insertHistorySQL = `
INSERT INTO hotel_mapping_history
  (supplier_hotel_id, supplier_code, old_master_hotel_id, new_master_hotel_id,
   action, confidence_score, mapping_method, performed_by)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ PATHS
// -----------------------------------------------------------------------------

const supplierHotelColumns = `
  id, supplier_code, supplier_hotel_id, hotel_name, hotel_name_normalized,
  address_line1, city, country_code, postal_code, latitude, longitude,
  phone_number, chain_code, master_hotel_id, mapping_status,
  mapping_confidence_score, mapping_method, mapped_at
`

const getSupplierHotelSQL = `SELECT` + supplierHotelColumns + `FROM supplier_hotels WHERE id = ?`

const masterHotelColumns = `
  id, hotel_name, hotel_name_normalized, address_line1, city, country_code,
  postal_code, latitude, longitude, phone_number, chain_code, status
`

const getMasterHotelSQL = `SELECT` + masterHotelColumns + `FROM master_hotels WHERE id = ?`

const masterExistsSQL = `SELECT id FROM master_hotels WHERE id = ? AND status = 'active'`

const listMasterHotelsSQL = `SELECT` + masterHotelColumns + `
FROM master_hotels
WHERE status = 'active'
ORDER BY hotel_name
LIMIT ?`

const listCandidatesBaseSQL = `SELECT` + masterHotelColumns + `
FROM master_hotels
WHERE status = 'active'`

// Busiest review queues first.
const listPendingReviewsSQL = `
SELECT
  sh.id,
  sh.supplier_code,
  sh.hotel_name,
  sh.city,
  sh.country_code,
  COUNT(pm.id) AS candidate_count
FROM supplier_hotels sh
LEFT JOIN potential_hotel_matches pm
  ON sh.id = pm.supplier_hotel_id AND pm.status = 'pending'
WHERE sh.mapping_status = 'pending_review'
GROUP BY sh.id, sh.supplier_code, sh.hotel_name, sh.city, sh.country_code
ORDER BY candidate_count DESC, sh.id
LIMIT ?
`

const listPotentialMatchesSQL = `
SELECT
  pm.id, pm.supplier_hotel_id, pm.supplier_code, pm.master_hotel_id,
  pm.match_score, pm.match_criteria, pm.status,
  mh.hotel_name, mh.address_line1, mh.city, mh.postal_code,
  mh.latitude, mh.longitude, mh.phone_number, mh.country_code
FROM potential_hotel_matches pm
JOIN master_hotels mh ON pm.master_hotel_id = mh.id
WHERE pm.supplier_hotel_id = ? AND pm.status = 'pending'
ORDER BY pm.match_score DESC, pm.master_hotel_id
LIMIT 10
`

const listMappingHistorySQL = `
SELECT
  id, supplier_hotel_id, supplier_code, old_master_hotel_id,
  new_master_hotel_id, action, confidence_score, mapping_method,
  performed_by, created_at
FROM hotel_mapping_history
WHERE supplier_hotel_id = ?
ORDER BY created_at DESC, id DESC
`

const statsSuppliersSQL = `SELECT COUNT(DISTINCT supplier_code) FROM supplier_hotels`

const statsByStatusSQL = `
SELECT mapping_status, COUNT(*)
FROM supplier_hotels
GROUP BY mapping_status
`

const statsBySupplierSQL = `
SELECT
  supplier_code,
  COUNT(*) AS total_hotels,
  SUM(CASE WHEN master_hotel_id IS NOT NULL THEN 1 ELSE 0 END) AS mapped_hotels
FROM supplier_hotels
GROUP BY supplier_code
ORDER BY supplier_code
`

const statsPendingSQL = `
SELECT COUNT(*) FROM supplier_hotels WHERE mapping_status = 'pending_review'
`

const exportMappingsBaseSQL = `
SELECT
  sh.supplier_code, sh.supplier_hotel_id, sh.hotel_name,
  sh.master_hotel_id, mh.hotel_name,
  sh.mapping_status, sh.mapping_confidence_score, sh.mapping_method, sh.mapped_at
FROM supplier_hotels sh
JOIN master_hotels mh ON sh.master_hotel_id = mh.id
WHERE sh.master_hotel_id IS NOT NULL`
