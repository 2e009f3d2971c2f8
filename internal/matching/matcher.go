package matching

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Match method labels, in audit priority order.
const (
	MethodExactNamePostal = "exact_name_postal"
	MethodExactNameGeo    = "exact_name_geo"
	MethodHighConfidence  = "high_confidence_fuzzy"
	MethodFuzzyNameGeo    = "fuzzy_name_geo"
	MethodMediumConfidence = "medium_confidence_fuzzy"
	MethodGeoProximity    = "geographic_proximity"
	MethodLowConfidence   = "low_confidence"

	// Reviewer-path methods, recorded in history but never derived by Score.
	MethodManual          = "manual"
	MethodManualNewMaster = "manual_new_master"
)

type Weights struct {
	Name       float64
	Distance   float64
	Address    float64
	PostalCode float64
	Other      float64
}

type Thresholds struct {
	AutoAccept      float64
	ManualReviewMin float64
	Reject          float64
}

type Config struct {
	Weights    Weights
	Thresholds Thresholds
	Bands      DistanceBands
}

func DefaultConfig() Config {
	return Config{
		Weights:    Weights{Name: 0.40, Distance: 0.30, Address: 0.15, PostalCode: 0.10, Other: 0.05},
		Thresholds: Thresholds{AutoAccept: 0.90, ManualReviewMin: 0.60, Reject: 0.40},
		Bands:      DistanceBands{Exact: 50, High: 100, Medium: 200, Low: 500},
	}
}

// Record is the matcher's view of either side of a candidate pair. Optional
// signals are pointers; a nil input drops that component from the weighted
// sum entirely rather than scoring it zero.
type Record struct {
	ID          int64
	Name        string
	Address     *string
	City        *string
	CountryCode *string
	PostalCode  *string
	Lat, Lon    *float64
	Phone       *string
	ChainCode   *string
}

// Criteria is the per-signal breakdown kept for audit and review display.
type Criteria struct {
	NameSimilarity    float64  `json:"name_similarity"`
	DistanceMeters    *float64 `json:"distance_meters,omitempty"`
	DistanceScore     *float64 `json:"distance_score,omitempty"`
	AddressSimilarity *float64 `json:"address_similarity,omitempty"`
	PostalCodeMatch   *bool    `json:"postal_code_match,omitempty"`
	PhoneMatch        *bool    `json:"phone_match,omitempty"`
	ChainMatch        bool     `json:"chain_match,omitempty"`
	CountryMismatch   bool     `json:"country_mismatch,omitempty"`
}

type MatchResult struct {
	MasterHotelID int64
	Score         float64
	Method        string
	Criteria      Criteria
}

type Action string

const (
	ActionAutoMap      Action = "auto_map"
	ActionManualReview Action = "manual_review"
	ActionCreateNew    Action = "create_new"
)

type Recommendation struct {
	Action Action
	Best   *MatchResult
}

// Matcher is stateless and safe for concurrent use; Score is a pure function
// of its two inputs.
type Matcher struct {
	cfg Config
}

func New(cfg Config) *Matcher {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultConfig().Weights
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultConfig().Thresholds
	}
	if cfg.Bands == (DistanceBands{}) {
		cfg.Bands = DefaultConfig().Bands
	}
	return &Matcher{cfg: cfg}
}

func (m *Matcher) Config() Config { return m.cfg }

// Score computes the weighted composite confidence for one candidate pair.
// Components with missing inputs are omitted from the sum; a country-code
// mismatch zeroes only the "other" component, never the whole score.
func (m *Matcher) Score(supplier, master Record) MatchResult {
	var crit Criteria
	score := 0.0

	crit.NameSimilarity = NameSimilarity(supplier.Name, master.Name)
	score += crit.NameSimilarity * m.cfg.Weights.Name

	if supplier.Lat != nil && supplier.Lon != nil && master.Lat != nil && master.Lon != nil {
		d := HaversineMeters(*supplier.Lat, *supplier.Lon, *master.Lat, *master.Lon)
		ds := m.cfg.Bands.Score(d)
		dm := math.Round(d)
		crit.DistanceMeters = &dm
		crit.DistanceScore = &ds
		score += ds * m.cfg.Weights.Distance
	}

	if deref(supplier.Address) != "" && deref(master.Address) != "" {
		as := AddressSimilarity(*supplier.Address, *master.Address)
		crit.AddressSimilarity = &as
		score += as * m.cfg.Weights.Address
	}

	if deref(supplier.PostalCode) != "" && deref(master.PostalCode) != "" {
		pm := foldPostal(*supplier.PostalCode) == foldPostal(*master.PostalCode)
		crit.PostalCodeMatch = &pm
		if pm {
			score += m.cfg.Weights.PostalCode
		}
	}

	other := 0.0
	if deref(supplier.Phone) != "" && deref(master.Phone) != "" {
		p1, p2 := phoneSuffix(*supplier.Phone), phoneSuffix(*master.Phone)
		pm := len(p1) == 7 && p1 == p2
		crit.PhoneMatch = &pm
		if pm {
			other += 0.5
		}
	}
	if deref(supplier.ChainCode) != "" && deref(supplier.ChainCode) == deref(master.ChainCode) {
		crit.ChainMatch = true
		other += 0.5
	}
	if deref(supplier.CountryCode) != "" && deref(master.CountryCode) != "" &&
		*supplier.CountryCode != *master.CountryCode {
		crit.CountryMismatch = true
		other = 0
	}
	score += other * m.cfg.Weights.Other

	method := m.methodFor(crit, score)
	// An exact normalized name anchored by postal code or <=Exact-band
	// geography identifies the hotel even when address and postal inputs are
	// absent from the pair; floor such pairs at the auto-accept threshold
	// unless the countries disagree.
	if !crit.CountryMismatch &&
		(method == MethodExactNamePostal || method == MethodExactNameGeo) {
		score = math.Max(score, m.cfg.Thresholds.AutoAccept)
	}

	return MatchResult{
		MasterHotelID: master.ID,
		Score:         score,
		Method:        method,
		Criteria:      crit,
	}
}

// Rank scores every candidate, drops pairs below the reject floor, and
// returns the rest ordered by descending confidence.
func (m *Matcher) Rank(supplier Record, candidates []Record) []MatchResult {
	out := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		r := m.Score(supplier, c)
		if r.Score >= m.cfg.Thresholds.Reject {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].MasterHotelID < out[j].MasterHotelID
	})
	return out
}

// Recommend maps a ranked result list to the three-way decision. The reject
// floor used during ranking and the manual-review floor are distinct: a pair
// can survive ranking yet still recommend create_new.
func (m *Matcher) Recommend(ranked []MatchResult) Recommendation {
	if len(ranked) == 0 {
		return Recommendation{Action: ActionCreateNew}
	}
	best := ranked[0]
	switch {
	case best.Score >= m.cfg.Thresholds.AutoAccept:
		return Recommendation{Action: ActionAutoMap, Best: &best}
	case best.Score >= m.cfg.Thresholds.ManualReviewMin:
		return Recommendation{Action: ActionManualReview, Best: &best}
	}
	return Recommendation{Action: ActionCreateNew}
}

func (m *Matcher) methodFor(crit Criteria, score float64) string {
	exactName := crit.NameSimilarity == 1.0
	if exactName && crit.PostalCodeMatch != nil && *crit.PostalCodeMatch {
		return MethodExactNamePostal
	}
	if exactName && crit.DistanceMeters != nil && *crit.DistanceMeters <= m.cfg.Bands.Exact {
		return MethodExactNameGeo
	}
	if score >= m.cfg.Thresholds.AutoAccept {
		return MethodHighConfidence
	}
	if crit.DistanceMeters != nil && *crit.DistanceMeters <= m.cfg.Bands.High &&
		crit.NameSimilarity >= 0.85 {
		return MethodFuzzyNameGeo
	}
	if score >= 0.70 {
		return MethodMediumConfidence
	}
	if crit.DistanceMeters != nil && *crit.DistanceMeters <= m.cfg.Bands.Medium {
		return MethodGeoProximity
	}
	return MethodLowConfidence
}

var nonDigitRe = regexp.MustCompile(`\D`)

func phoneSuffix(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) > 7 {
		return digits[len(digits)-7:]
	}
	return digits
}

func foldPostal(pc string) string {
	return strings.ToLower(strings.ReplaceAll(pc, " ", ""))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
