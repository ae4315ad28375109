package cvr

import (
	"fmt"
	"strings"
)

// Contest is one contest and the contiguous block of choice columns it owns.
type Contest struct {
	Name    string
	Start   int // first absolute column index
	End     int // one past the last absolute column index
	Choices []string
}

// Width returns the number of choice columns.
func (c Contest) Width() int { return c.End - c.Start }

// Layout maps vote columns to contests.
type Layout struct {
	HeaderLength int
	Width        int
	Contests     []Contest

	contestOf []int // vote column offset -> contest index
}

// NewLayout derives the contest layout from the table's header rows.
// Consecutive vote columns sharing a contest name form one contest; a name
// that reappears after another contest is rejected.
func NewLayout(t *Table, headerLength int) (*Layout, error) {
	if headerLength <= 0 {
		return nil, fmt.Errorf("%w: header length must be positive, got %d", ErrMalformedLayout, headerLength)
	}
	width := len(t.Headers)
	if width <= headerLength {
		return nil, fmt.Errorf("%w: %d header columns leave no vote columns after %d identifying columns",
			ErrMalformedLayout, width, headerLength)
	}
	if len(t.Contests) != width || len(t.Choices) != width {
		return nil, fmt.Errorf("%w: contest row has %d columns, choice row %d, header row %d",
			ErrMalformedLayout, len(t.Contests), len(t.Choices), width)
	}

	l := &Layout{
		HeaderLength: headerLength,
		Width:        width,
		contestOf:    make([]int, width-headerLength),
	}
	seen := make(map[string]bool)
	for col := headerLength; col < width; col++ {
		name := strings.TrimSpace(t.Contests[col])
		if name == "" {
			return nil, fmt.Errorf("%w: vote column %d has no contest name", ErrMalformedLayout, col+1)
		}
		n := len(l.Contests)
		if n > 0 && l.Contests[n-1].Name == name {
			l.Contests[n-1].End = col + 1
			l.Contests[n-1].Choices = append(l.Contests[n-1].Choices, t.Choices[col])
		} else {
			if seen[name] {
				return nil, fmt.Errorf("%w: contest %q is split across non-adjacent columns", ErrMalformedLayout, name)
			}
			seen[name] = true
			l.Contests = append(l.Contests, Contest{
				Name:    name,
				Start:   col,
				End:     col + 1,
				Choices: []string{t.Choices[col]},
			})
		}
		l.contestOf[col-headerLength] = len(l.Contests) - 1
	}
	return l, nil
}

// VoteColumns returns the number of (contest, choice) columns.
func (l *Layout) VoteColumns() int { return l.Width - l.HeaderLength }

// ContestOfColumn returns the contest index owning the vote column offset.
func (l *Layout) ContestOfColumn(offset int) int { return l.contestOf[offset] }

// ColumnLabel names a vote column offset as "contest / choice".
func (l *Layout) ColumnLabel(offset int) string {
	c := l.Contests[l.contestOf[offset]]
	return c.Name + " / " + c.Choices[l.HeaderLength+offset-c.Start]
}

// CheckRow verifies a data row matches the layout width.
func (l *Layout) CheckRow(row []string) error {
	if len(row) != l.Width {
		return fmt.Errorf("%w: row has %d columns, layout expects %d", ErrMalformedLayout, len(row), l.Width)
	}
	return nil
}
