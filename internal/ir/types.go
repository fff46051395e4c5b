package ir

// ModelSpec is a compiled model definition: an ordered list of sampling
// statements, each optionally gated on the values of earlier statements.
type ModelSpec struct {
	Name    string     `json:"name"`
	Purpose string     `json:"purpose"`
	Sites   []SiteSpec `json:"sites"`
}

// SiteSpec describes one sampling statement of a compiled model.
//
// Exactly one of Dist or Table is set. With Table, Given names the earlier
// sites whose values (joined with ",") select the row.
type SiteSpec struct {
	Name      string              `json:"name"`
	Dist      *DistSpec           `json:"dist,omitempty"`
	Given     []string            `json:"given,omitempty"`
	Table     map[string]DistSpec `json:"table,omitempty"`
	Observed  IRValue             `json:"observed,omitempty"`
	Enumerate string              `json:"enumerate,omitempty"` // "", "sequential", "none"
	When      *Condition          `json:"when,omitempty"`
}

// IsObserved reports whether the site carries a fixed observed value.
func (s SiteSpec) IsObserved() bool {
	return s.Observed != nil
}

// Condition gates a site on the value an earlier site took along the
// current path. A site whose condition references a site that was not
// reached is skipped.
type Condition struct {
	Site   string  `json:"site"`
	Equals IRValue `json:"equals,omitempty"`
	In     IRArray `json:"in,omitempty"`
}

// Holds reports whether the condition is satisfied by value.
func (c Condition) Holds(value IRValue) bool {
	if c.Equals != nil && Equal(c.Equals, value) {
		return true
	}
	for _, v := range c.In {
		if Equal(v, value) {
			return true
		}
	}
	return false
}

// Distribution kinds understood by the compiler and dist.FromSpec.
const (
	KindCategorical      = "categorical"
	KindCategoricalBatch = "categorical_batch"
	KindBernoulli        = "bernoulli"
	KindUniformInt       = "uniform_int"
	KindPoisson          = "poisson"
	KindNormal           = "normal"
)

// DistSpec holds the parameters of a distribution. Which fields are used
// depends on Kind.
type DistSpec struct {
	Kind       string      `json:"kind"`
	Values     IRArray     `json:"values,omitempty"`      // categorical, categorical_batch
	Probs      []float64   `json:"probs,omitempty"`       // categorical
	BatchProbs [][]float64 `json:"batch_probs,omitempty"` // categorical_batch
	P          float64     `json:"p,omitempty"`           // bernoulli
	Low        int64       `json:"low,omitempty"`         // uniform_int
	High       int64       `json:"high,omitempty"`        // uniform_int
	Rate       float64     `json:"rate,omitempty"`        // poisson
	Loc        float64     `json:"loc,omitempty"`         // normal
	Scale      float64     `json:"scale,omitempty"`       // normal
}
