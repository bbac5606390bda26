package query

import (
	"strings"

	"marketsynth/internal/model"
)

var sqlOps = map[string]string{
	model.OpEq:  "=",
	model.OpGt:  ">",
	model.OpLt:  "<",
	model.OpGte: ">=",
	model.OpLte: "<=",
}

// SQL renders n as a WHERE clause with bound parameters over the records
// layout the SQL stores share: candle columns by name, ts in unix millis
// and indicators in a JSON text column. indicator returns the expression
// that reads one indicator key as a number, with its arguments.
//
// Field names come from the fieldset, never from input directly. An
// indicator missing from a row reads as NULL, so any comparison on it is
// false.
func SQL(n *Node, indicator func(key string) (string, []any)) (string, []any) {
	if !n.Leaf() {
		l, la := SQL(n.Left, indicator)
		r, ra := SQL(n.Right, indicator)
		return "(" + l + " " + n.Op + " " + r + ")", append(la, ra...)
	}

	c := n.Cond
	switch c.Kind {
	case Time:
		return "ts " + sqlOps[c.Op] + " ?", []any{c.Millis}
	case Text:
		if c.Op == model.OpContains {
			return "LOWER(" + c.Field + ") LIKE ? ESCAPE '\\'", []any{"%" + escapeLike(strings.ToLower(c.Text)) + "%"}
		}
		return c.Field + " " + sqlOps[c.Op] + " ?", []any{c.Text}
	}

	if model.IsCandleField(c.Field) {
		return c.Field + " " + sqlOps[c.Op] + " ?", []any{c.Num}
	}
	expr, args := indicator(c.Field)
	return expr + " " + sqlOps[c.Op] + " ?", append(args, c.Num)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
