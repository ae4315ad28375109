package anonymize

import (
	"strconv"

	"cvranon/internal/cvr"
)

type contestDef struct {
	name    string
	choices []string
}

// tableBuilder assembles in-memory CVR tables with the standard eight
// identifying columns. The declared style goes into the precinct-portion
// column, which is the default style column.
type tableBuilder struct {
	contests []contestDef
	rows     [][]string
	nextID   int
}

func newBuilder(contests ...contestDef) *tableBuilder {
	return &tableBuilder{contests: contests}
}

type votes map[string][]int

// add appends n identical ballots of the declared style.
func (b *tableBuilder) add(n int, style string, v votes) *tableBuilder {
	for k := 0; k < n; k++ {
		b.addID(strconv.Itoa(b.nextID+1), style, v)
	}
	return b
}

// addID appends one ballot with an explicit ballot id.
func (b *tableBuilder) addID(id, style string, v votes) *tableBuilder {
	b.nextID++
	row := []string{id, "1", "1", strconv.Itoa(b.nextID), "1-1-" + id, "Election Day", style, "Card"}
	for _, c := range b.contests {
		cells, ok := v[c.name]
		for i := range c.choices {
			if ok {
				row = append(row, strconv.Itoa(cells[i]))
			} else {
				row = append(row, "")
			}
		}
	}
	b.rows = append(b.rows, row)
	return b
}

func (b *tableBuilder) table() *cvr.Table {
	t := &cvr.Table{
		Version:        []string{"Test Election", "5.10.11.24"},
		Contests:       make([]string, 8),
		Choices:        make([]string, 8),
		Headers:        []string{"CvrNumber", "TabulatorNum", "BatchId", "RecordId", "ImprintedId", "CountingGroup", "PrecinctPortion", "BallotType"},
		Rows:           b.rows,
		LineTerminator: "\n",
	}
	for _, c := range b.contests {
		for _, ch := range c.choices {
			t.Contests = append(t.Contests, c.name)
			t.Choices = append(t.Choices, ch)
			t.Headers = append(t.Headers, "")
		}
	}
	for len(t.Version) < len(t.Headers) {
		t.Version = append(t.Version, "")
	}
	return t
}

func contest(name string, choices ...string) contestDef {
	return contestDef{name: name, choices: choices}
}

// scenarioA: one rare ballot carrying only contest A, ten ballots carrying A
// and B, ten carrying only B.
func scenarioA() *cvr.Table {
	return newBuilder(contest("A", "x", "y"), contest("B", "p", "q")).
		add(1, "S1", votes{"A": {1, 0}}).
		add(5, "S2", votes{"A": {1, 0}, "B": {1, 0}}).
		add(5, "S2", votes{"A": {0, 1}, "B": {0, 1}}).
		add(5, "S3", votes{"B": {1, 0}}).
		add(5, "S3", votes{"B": {0, 1}}).
		table()
}

// scenarioC: the rare ballots alone show nine votes for X and one for Y.
func scenarioC(donorVotesY bool) *cvr.Table {
	b := newBuilder(contest("C", "X", "Y")).
		add(9, "R1", votes{"C": {1, 0}}).
		add(1, "R2", votes{"C": {0, 1}}).
		add(10, "S", votes{"C": {1, 0}})
	if donorVotesY {
		b.add(10, "S", votes{"C": {0, 1}})
	} else {
		b.add(10, "S", votes{"C": {1, 0}})
	}
	return b.table()
}

func testOptions() Options {
	return DefaultOptions()
}

func columnTotals(t *cvr.Table) []int64 {
	layout, err := cvr.NewLayout(t, 8)
	if err != nil {
		panic(err)
	}
	totals, err := cvr.Tally(layout, t.Rows)
	if err != nil {
		panic(err)
	}
	return totals
}
