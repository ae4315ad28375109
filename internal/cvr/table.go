// Package cvr reads and writes cast vote record tables.
//
// A CVR file carries four header rows (version, contest names, choice names,
// column headers) followed by one row per ballot. The first HeaderLength
// columns identify the ballot; every later column holds the vote value for one
// (contest, choice) pair and is empty when that contest was not on the ballot.
package cvr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedLayout reports a contest/choice column layout that cannot be
// mapped onto the data rows.
var ErrMalformedLayout = errors.New("malformed column layout")

// Identifying field positions in the standard eight-column prefix.
const (
	FieldBallotID = iota
	FieldTabulator
	FieldBatch
	FieldRecord
	FieldImprinted
	FieldCountingGroup
	FieldPrecinctPortion
	FieldBallotType
)

// Table is a fully materialized CVR file.
type Table struct {
	Version  []string
	Contests []string
	Choices  []string
	Headers  []string
	Rows     [][]string

	// LineTerminator is the record separator detected on read ("\n" when unknown).
	LineTerminator string
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Version:        cloneRow(t.Version),
		Contests:       cloneRow(t.Contests),
		Choices:        cloneRow(t.Choices),
		Headers:        cloneRow(t.Headers),
		Rows:           make([][]string, len(t.Rows)),
		LineTerminator: t.LineTerminator,
	}
	for i, r := range t.Rows {
		out.Rows[i] = cloneRow(r)
	}
	return out
}

func cloneRow(r []string) []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r))
	copy(out, r)
	return out
}

// ParseVote parses a single vote cell. An empty (or blank) cell means the
// contest was not on the ballot.
func ParseVote(cell string) (value int64, present bool, err error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("vote cell %q is not an integer", cell)
	}
	return v, true, nil
}

// Tally sums every vote column of the given rows. The result is indexed by
// vote column offset (column - HeaderLength).
func Tally(layout *Layout, rows [][]string) ([]int64, error) {
	totals := make([]int64, layout.VoteColumns())
	for i, row := range rows {
		if err := layout.CheckRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		for off := range totals {
			v, _, err := ParseVote(row[layout.HeaderLength+off])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %d: %w", i+1, layout.HeaderLength+off+1, err)
			}
			totals[off] += v
		}
	}
	return totals, nil
}
