package sqlite

import "marketsynth/internal/query"

// render turns a validated predicate tree into a WHERE clause over the
// records table.
func render(n *query.Node) (string, []any) {
	return query.SQL(n, jsonField)
}

// jsonField reads one indicator from the fields JSON.
func jsonField(key string) (string, []any) {
	return "json_extract(fields, ?)", []any{`$."` + key + `"`}
}
