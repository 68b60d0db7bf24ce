package exec

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/athena"
)

// Result represents results of a query execution.
// This struct must implement print.Result interface.
type Result struct {
	info *athena.QueryExecution
	rs   *athena.ResultSet
}

// Info returns information of a query execution.
func (r *Result) Info() *athena.QueryExecution {
	return r.info
}

// Columns returns the column names of the result in their original order.
func (r *Result) Columns() []string {
	if r == nil || r.rs == nil || r.rs.ResultSetMetadata == nil {
		return nil
	}

	cols := make([]string, len(r.rs.ResultSetMetadata.ColumnInfo))
	for i, ci := range r.rs.ResultSetMetadata.ColumnInfo {
		cols[i] = aws.StringValue(ci.Name)
	}
	return cols
}

// Rows returns an array of all data rows of the result which contain arrays of columns.
//
// Athena repeats the column names as a literal first row for SELECT results.
// If the first row equals the column names it is stripped here, exactly once;
// the header is available via Columns instead.
func (r *Result) Rows() [][]string {
	if r == nil || r.rs == nil {
		return nil
	}

	rows := make([][]string, 0, len(r.rs.Rows))
	for _, row := range r.rs.Rows {
		rw := make([]string, len(row.Data))
		for i, d := range row.Data {
			rw[i] = aws.StringValue(d.VarCharValue)
		}
		rows = append(rows, rw)
	}

	if len(rows) > 0 && equalsColumns(rows[0], r.Columns()) {
		rows = rows[1:]
	}

	return rows
}

func equalsColumns(row, cols []string) bool {
	if len(cols) == 0 || len(row) != len(cols) {
		return false
	}
	for i, c := range cols {
		if row[i] != c {
			return false
		}
	}
	return true
}
