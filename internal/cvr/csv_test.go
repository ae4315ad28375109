package cvr

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Test Election,5.10.11.24,,,,,,,,,,\n" +
	",,,,,,,,A,A,B,B\n" +
	",,,,,,,,A0,A1,B0,B1\n" +
	"CvrNumber,TabulatorNum,BatchId,RecordId,ImprintedId,CountingGroup,PrecinctPortion,BallotType,A0,A1,B0,B1\n" +
	"1,1,1,1,1-1-1,cg,1R1,,1,0,,\n" +
	"2,1,1,2,1-1-2,cg,2S2,,0,1,1,0\n"

func TestDetectLineTerminator(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a,b\r\nc,d\r\n", "\r\n"},
		{"a,b\nc,d\n", "\n"},
		{"a,b\rc,d\r", "\r"},
		{"a,b", "\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLineTerminator([]byte(tt.in)), "input %q", tt.in)
	}
}

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV([]byte(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "\n", tbl.LineTerminator)
	assert.Equal(t, "Test Election", tbl.Version[0])
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "1R1", tbl.Rows[0][FieldPrecinctPortion])
	assert.Equal(t, "", tbl.Rows[0][10])
}

func TestReadCSV_StripsBOMAndCR(t *testing.T) {
	data := "\ufeff" + strings.ReplaceAll(sampleCSV, "\n", "\r")
	tbl, err := ReadCSV([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "\r", tbl.LineTerminator)
	assert.Equal(t, "Test Election", tbl.Version[0])
	assert.Len(t, tbl.Rows, 2)
}

func TestReadCSV_BareQuotesInChoiceNames(t *testing.T) {
	data := strings.Replace(sampleCSV, ",A0,A1,", `,Robert "Bob" Smith,A1,`, 1)
	tbl, err := ReadCSV([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, `Robert "Bob" Smith`, tbl.Choices[8])
	assert.Len(t, tbl.Rows, 2)
}

func TestReadCSV_TooFewHeaderRows(t *testing.T) {
	_, err := ReadCSV([]byte("a,b\nc,d\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedLayout))
}

func TestWriteCSV_RoundTripPreservesTerminator(t *testing.T) {
	crlf := strings.ReplaceAll(sampleCSV, "\n", "\r\n")
	tbl, err := ReadCSV([]byte(crlf))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, tbl.LineTerminator))
	assert.Equal(t, crlf, buf.String())
}

func TestSaveCSVFile(t *testing.T) {
	tbl, err := ReadCSV([]byte(sampleCSV))
	require.NoError(t, err)
	tbl.LineTerminator = "\r\n"

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	require.NoError(t, SaveCSVFile(path, tbl, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data), "terminator not preserved when disabled")

	require.NoError(t, SaveCSVFile(path, tbl, true))
	back, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\r\n", back.LineTerminator)
	if diff := cmp.Diff(tbl.Rows, back.Rows); diff != "" {
		t.Errorf("rows changed across save/load (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "atomic write must not leave temp files behind")
}

func TestTableClone(t *testing.T) {
	tbl, err := ReadCSV([]byte(sampleCSV))
	require.NoError(t, err)

	c := tbl.Clone()
	c.Rows[0][0] = "changed"
	assert.Equal(t, "1", tbl.Rows[0][0])
}
