package anonymize

// WarningKind classifies advisory findings.
type WarningKind string

const (
	WarnStyleLeakage WarningKind = "style_leakage"
	WarnUnderCovered WarningKind = "under_covered_contest"
	WarnUnbalanced   WarningKind = "unbalanced_contest"
)

// Warning is an advisory finding. Warnings never stop a run.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Message   string      `json:"message"`
	Aggregate string      `json:"aggregate,omitempty"`
	Contest   string      `json:"contest,omitempty"`
	Labels    []string    `json:"labels,omitempty"`
}

// StyleInfo describes one style bucket as classified from the input.
type StyleInfo struct {
	Label     string `json:"label"`
	Declared  string `json:"declared"`
	Signature string `json:"signature"`
	Contests  int    `json:"contests"`
	Ballots   int    `json:"ballots"`
	Rare      bool   `json:"rare"`
	Remaining int    `json:"remaining"` // ballots left in the style after borrowing
}

// AggregateInfo describes one emitted aggregate.
type AggregateInfo struct {
	ID          string   `json:"id"`
	Ballots     int      `json:"ballots"`
	RareBallots int      `json:"rare_ballots"`
	Borrowed    int      `json:"borrowed"`
	Styles      []string `json:"styles"`
}

// Report is the structured outcome of a run.
type Report struct {
	Threshold int    `json:"threshold"`
	Policy    string `json:"policy"`

	TotalBallots int `json:"total_ballots"`
	Styles       int `json:"styles"`
	RareStyles   int `json:"rare_styles"`
	RareBallots  int `json:"rare_ballots"`
	CommonStyles int `json:"common_styles"`

	BorrowedBallots int      `json:"borrowed_ballots"`
	AbsorbedStyles  []string `json:"absorbed_styles,omitempty"`
	Passes          int      `json:"passes"`
	OutputRows      int      `json:"output_rows"`

	StyleTable []StyleInfo     `json:"style_table"`
	Aggregates []AggregateInfo `json:"aggregates"`
	Warnings   []Warning       `json:"warnings"`
}

// WarningsOf returns the warnings of the given kind.
func (r *Report) WarningsOf(kind WarningKind) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

func (r *Report) warn(w Warning) { r.Warnings = append(r.Warnings, w) }
