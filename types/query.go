package types

// QueryResult is a tabular result set with named columns and ordered rows.
// Wire shape: {"columns": [...], "rows": [[...], ...], "row_count": n}.
//
// Column order is significant; uniqueness is not required. Every row should
// have len == len(Columns) and RowCount should equal len(Rows), but neither
// is enforced upstream. Consumers must tolerate both mismatches.
type QueryResult struct {
	// Columns is the ordered column name sequence.
	Columns []string `json:"columns" msgpack:"columns"`
	// Rows holds positional cell values, string or number.
	Rows [][]any `json:"rows" msgpack:"rows"`
	// RowCount is the producer-reported row count. Advisory only.
	RowCount int `json:"row_count" msgpack:"row_count"`
}

// Records converts the tabular shape into an array of keyed records,
// mapping each column name to the row's positional value. Row order is
// preserved. Rows shorter than the column list produce partial records;
// excess cells without a column name are dropped.
func (q *QueryResult) Records() []map[string]any {
	if q == nil {
		return nil
	}
	records := make([]map[string]any, 0, len(q.Rows))
	for _, row := range q.Rows {
		record := make(map[string]any, len(q.Columns))
		for i, col := range q.Columns {
			if i >= len(row) {
				break
			}
			record[col] = row[i]
		}
		records = append(records, record)
	}
	return records
}
