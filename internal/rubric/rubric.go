package rubric

// RawMax is the top of the 1..5 scale every criterion is rated on.
const RawMax = 5

const (
	PlanSpecificity            = "plan_specificity"
	PlanFeasibility            = "plan_feasibility"
	PlanMeasurability          = "plan_measurability"
	ResultSpecificityGoal      = "result_specificity_goal"
	TeamParticipationDiversity = "team_participation_diversity"
	EvidenceStrength           = "evidence_strength"
)

type Criterion struct {
	Key       string  `json:"key"`
	MaxPoints float64 `json:"max_points"`
	LabelKO   string  `json:"label_ko"`
	LabelEN   string  `json:"label_en"`
}

// Rubric is an ordered, read-only set of weighted criteria.
type Rubric struct {
	Version  string
	criteria []Criterion
	index    map[string]int
}

// V7 is the rubric the evaluation prompt describes.
var V7 = newRubric("v7", []Criterion{
	{Key: PlanSpecificity, MaxPoints: 10, LabelKO: "계획 구체성", LabelEN: "Plan specificity"},
	{Key: PlanFeasibility, MaxPoints: 10, LabelKO: "계획 실현성", LabelEN: "Plan feasibility"},
	{Key: PlanMeasurability, MaxPoints: 10, LabelKO: "계획 측정성", LabelEN: "Plan measurability"},
	{Key: ResultSpecificityGoal, MaxPoints: 30, LabelKO: "결과 구체성 (목표)", LabelEN: "Result specificity (goal)"},
	{Key: TeamParticipationDiversity, MaxPoints: 20, LabelKO: "팀 참여도/다양성", LabelEN: "Team participation/diversity"},
	{Key: EvidenceStrength, MaxPoints: 20, LabelKO: "증빙 강도", LabelEN: "Evidence strength"},
})

func newRubric(version string, criteria []Criterion) *Rubric {
	r := &Rubric{Version: version, criteria: criteria, index: make(map[string]int, len(criteria))}
	for i, c := range criteria {
		r.index[c.Key] = i
	}
	return r
}

// Keys returns the criterion keys in rubric order.
func (r *Rubric) Keys() []string {
	keys := make([]string, len(r.criteria))
	for i, c := range r.criteria {
		keys[i] = c.Key
	}
	return keys
}

// Criteria returns a copy of the criteria in rubric order.
func (r *Rubric) Criteria() []Criterion {
	out := make([]Criterion, len(r.criteria))
	copy(out, r.criteria)
	return out
}

func (r *Rubric) Lookup(key string) (Criterion, bool) {
	i, ok := r.index[key]
	if !ok {
		return Criterion{}, false
	}
	return r.criteria[i], true
}

func (r *Rubric) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Max returns the point cap of key, 0 for unknown keys.
func (r *Rubric) Max(key string) float64 {
	c, _ := r.Lookup(key)
	return c.MaxPoints
}

// TotalMax is the sum of all point caps.
func (r *Rubric) TotalMax() float64 {
	var sum float64
	for _, c := range r.criteria {
		sum += c.MaxPoints
	}
	return sum
}

// Weighted rescales a raw 0..5 rating linearly onto the criterion's cap.
// Raw values outside [0, RawMax] are clamped.
func (r *Rubric) Weighted(key string, raw float64) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > RawMax {
		raw = RawMax
	}
	return raw / RawMax * r.Max(key)
}

// Apply weights every rubric criterion found in raw and sums the result.
// Criteria missing from raw count as 0; keys outside the rubric are ignored.
func (r *Rubric) Apply(raw map[string]float64) (map[string]float64, float64) {
	weighted := make(map[string]float64, len(r.criteria))
	var total float64
	for _, c := range r.criteria {
		w := r.Weighted(c.Key, raw[c.Key])
		weighted[c.Key] = w
		total += w
	}
	return weighted, total
}

// Label returns the display name of key for locale ("ko" or "en").
// Unknown keys are returned unchanged.
func (r *Rubric) Label(key, locale string) string {
	c, ok := r.Lookup(key)
	if !ok {
		return key
	}
	if locale == "en" {
		return c.LabelEN
	}
	return c.LabelKO
}
