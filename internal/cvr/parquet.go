package cvr

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cvranon/internal/logging"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// Columns a long-format Parquet CVR must provide.
var parquetColumns = []string{"voter_id", "contest", "candidate", "isVote", "precinctPortionId"}

// standardHeaders is the eight-column identifying prefix emitted for
// converted files.
var standardHeaders = []string{
	"CvrNumber", "TabulatorNum", "BatchId", "RecordId", "ImprintedId",
	"CountingGroup", "PrecinctPortion", "BallotType",
}

// LongVote is one marked (voter, contest, candidate) triple from a
// long-format CVR.
type LongVote struct {
	VoterID   string
	Contest   string
	Candidate string
	Precinct  int64
}

// IsParquet reports whether the path names a Parquet file.
func IsParquet(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".parquet")
}

// ReadParquetFile loads a long-format Parquet CVR through DuckDB and pivots it
// into the wide table layout.
func ReadParquetFile(ctx context.Context, path string) (*Table, error) {
	timer := logging.StartTimer(logging.CategoryIO, "ReadParquetFile")
	defer timer.Stop()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	defer db.Close()

	source := fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))

	if err := checkParquetColumns(ctx, db, source); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	query := fmt.Sprintf(`SELECT CAST(voter_id AS VARCHAR), CAST(contest AS VARCHAR),
		CAST(candidate AS VARCHAR), CAST(precinctPortionId AS BIGINT)
		FROM %s WHERE isVote`, source)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", path, err)
	}
	defer rows.Close()

	var votes []LongVote
	for rows.Next() {
		var v LongVote
		if err := rows.Scan(&v.VoterID, &v.Contest, &v.Candidate, &v.Precinct); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	logging.Get(logging.CategoryIO).Debug("read Parquet votes", zap.String("path", path), zap.Int("votes", len(votes)))
	return PivotLongVotes(votes), nil
}

func checkParquetColumns(ctx context.Context, db *sql.DB, source string) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT column_name FROM (DESCRIBE SELECT * FROM %s)", source))
	if err != nil {
		return fmt.Errorf("failed to describe Parquet file: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		found[name] = true
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, c := range parquetColumns {
		if !found[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: Parquet file missing required columns %v (found %v)", ErrMalformedLayout, missing, names)
	}
	return nil
}

// PivotLongVotes converts marked votes into one wide row per voter. Voters,
// contests and candidates are sorted; a contest cell is "1" for the chosen
// candidate, "0" for the others when the voter marked anything in that
// contest, and empty when the voter has no mark in it.
func PivotLongVotes(votes []LongVote) *Table {
	byVoter := make(map[string][]LongVote)
	candidates := make(map[string]map[string]bool)
	for _, v := range votes {
		byVoter[v.VoterID] = append(byVoter[v.VoterID], v)
		if candidates[v.Contest] == nil {
			candidates[v.Contest] = make(map[string]bool)
		}
		candidates[v.Contest][v.Candidate] = true
	}

	voters := sortedKeys(byVoter)
	contests := sortedKeys(candidates)
	contestChoices := make(map[string][]string, len(contests))
	for _, c := range contests {
		contestChoices[c] = sortedKeys(candidates[c])
	}

	pad := func(row []string) []string { return append(row, make([]string, len(standardHeaders)-len(row))...) }
	t := &Table{
		Version:        pad([]string{"Parquet CVR", "V1"}),
		Contests:       make([]string, len(standardHeaders)),
		Choices:        make([]string, len(standardHeaders)),
		Headers:        append([]string(nil), standardHeaders...),
		LineTerminator: "\n",
	}
	for _, c := range contests {
		for _, cand := range contestChoices[c] {
			t.Contests = append(t.Contests, c)
			t.Choices = append(t.Choices, cand)
			t.Headers = append(t.Headers, cand)
		}
	}

	for i, voter := range voters {
		vv := byVoter[voter]
		marked := make(map[string]map[string]bool)
		for _, v := range vv {
			if marked[v.Contest] == nil {
				marked[v.Contest] = make(map[string]bool)
			}
			marked[v.Contest][v.Candidate] = true
		}
		n := strconv.Itoa(i + 1)
		row := []string{n, "1", "1", n, voter, "1", strconv.FormatInt(vv[0].Precinct, 10), ""}
		for _, c := range contests {
			for _, cand := range contestChoices[c] {
				switch {
				case marked[c] == nil:
					row = append(row, "")
				case marked[c][cand]:
					row = append(row, "1")
				default:
					row = append(row, "0")
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
