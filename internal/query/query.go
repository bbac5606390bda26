// Package query turns search criteria into a predicate tree over enriched
// records. Criteria fold strictly left to right with no precedence:
// ((c0 j0 c1) j1 c2) ...
package query

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"marketsynth/internal/model"
)

// Kind is how a field's values compare.
type Kind int

const (
	Numeric Kind = iota
	Text
	Time
)

// Fieldset is the set of searchable fields.
type Fieldset struct {
	kinds map[string]Kind
}

// NewFieldset returns the candle columns plus the given indicator keys.
func NewFieldset(indicatorKeys []string) Fieldset {
	kinds := map[string]Kind{
		"symbol":     Text,
		"resolution": Text,
		"timestamp":  Time,
		"open":       Numeric,
		"high":       Numeric,
		"low":        Numeric,
		"close":      Numeric,
		"volume":     Numeric,
	}
	for _, k := range indicatorKeys {
		if _, ok := kinds[k]; !ok {
			kinds[k] = Numeric
		}
	}
	return Fieldset{kinds: kinds}
}

// Kind reports the field's kind and whether it is searchable.
func (f Fieldset) Kind(field string) (Kind, bool) {
	k, ok := f.kinds[field]
	return k, ok
}

// ValidationError is a malformed criterion. HTTP handlers map it to 400.
type ValidationError struct {
	Index int
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("criterion %d: %s", e.Index, e.Msg)
}

// Cond is a single resolved comparison.
type Cond struct {
	Field  string
	Kind   Kind
	Op     string
	Num    float64
	Text   string
	Millis int64
}

// Node is a predicate tree. A leaf has an empty Op and a Cond.
type Node struct {
	Op    string // model.JoinAnd, model.JoinOr or "" for a leaf
	Left  *Node
	Right *Node
	Cond  Cond
}

// Leaf reports whether n is a single comparison.
func (n *Node) Leaf() bool { return n.Op == "" }

// Build validates criteria against fs and folds them into a tree.
// At least one criterion is required.
func Build(criteria []model.Criterion, fs Fieldset) (*Node, error) {
	if len(criteria) == 0 {
		return nil, &ValidationError{Index: 0, Msg: "at least one criterion is required"}
	}
	acc, err := buildCond(0, criteria[0], fs)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(criteria)-1; i++ {
		next, err := buildCond(i+1, criteria[i+1], fs)
		if err != nil {
			return nil, err
		}
		op := model.JoinOr
		if strings.EqualFold(strings.TrimSpace(criteria[i].Joiner), model.JoinAnd) {
			op = model.JoinAnd
		}
		acc = &Node{Op: op, Left: acc, Right: next}
	}
	return acc, nil
}

func buildCond(i int, c model.Criterion, fs Fieldset) (*Node, error) {
	kind, ok := fs.Kind(c.Field)
	if !ok {
		return nil, &ValidationError{Index: i, Msg: fmt.Sprintf("unknown field %q", c.Field)}
	}
	if !model.ValidOperator(c.Operator) {
		return nil, &ValidationError{Index: i, Msg: fmt.Sprintf("unknown operator %q", c.Operator)}
	}
	cond := Cond{Field: c.Field, Kind: kind, Op: c.Operator}
	val := strings.TrimSpace(c.Value)

	switch kind {
	case Numeric:
		if c.Operator == model.OpContains {
			return nil, &ValidationError{Index: i, Msg: fmt.Sprintf("contains is not supported on numeric field %q", c.Field)}
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ValidationError{Index: i, Msg: fmt.Sprintf("%q is not a number", c.Value)}
		}
		cond.Num = f
	case Time:
		if c.Operator == model.OpContains {
			return nil, &ValidationError{Index: i, Msg: "contains is not supported on timestamp"}
		}
		ms, err := parseTime(val)
		if err != nil {
			return nil, &ValidationError{Index: i, Msg: err.Error()}
		}
		cond.Millis = ms
	case Text:
		cond.Text = c.Value
		// Symbols of three or more characters match loosely.
		if c.Field == "symbol" && len(c.Value) >= 3 {
			cond.Op = model.OpContains
		}
	}
	return &Node{Cond: cond}, nil
}

// parseTime accepts RFC 3339 or unix milliseconds.
func parseTime(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither RFC 3339 nor unix milliseconds", s)
	}
	return t.UnixMilli(), nil
}

// Match evaluates the tree against r. A comparison on a field the record
// does not carry is false.
func (n *Node) Match(r *model.EnrichedRecord) bool {
	switch n.Op {
	case model.JoinAnd:
		return n.Left.Match(r) && n.Right.Match(r)
	case model.JoinOr:
		return n.Left.Match(r) || n.Right.Match(r)
	}
	c := n.Cond
	switch c.Kind {
	case Numeric:
		v, ok := numericValue(r, c.Field)
		return ok && compare(c.Op, cmp.Compare(v, c.Num))
	case Time:
		return compare(c.Op, cmp.Compare(r.TS.UnixMilli(), c.Millis))
	default:
		v := textValue(r, c.Field)
		if c.Op == model.OpContains {
			return strings.Contains(strings.ToLower(v), strings.ToLower(c.Text))
		}
		return compare(c.Op, strings.Compare(v, c.Text))
	}
}

func numericValue(r *model.EnrichedRecord, field string) (float64, bool) {
	switch field {
	case "open":
		return r.Open, true
	case "high":
		return r.High, true
	case "low":
		return r.Low, true
	case "close":
		return r.Close, true
	case "volume":
		return float64(r.Volume), true
	}
	return r.Field(field)
}

func textValue(r *model.EnrichedRecord, field string) string {
	if field == "resolution" {
		return string(r.Resolution)
	}
	return r.Symbol
}

func compare(op string, c int) bool {
	switch op {
	case model.OpEq:
		return c == 0
	case model.OpGt:
		return c > 0
	case model.OpLt:
		return c < 0
	case model.OpGte:
		return c >= 0
	case model.OpLte:
		return c <= 0
	}
	return false
}

// Filter returns the records matching n, keeping their order.
func Filter(n *Node, records []model.EnrichedRecord) []model.EnrichedRecord {
	var out []model.EnrichedRecord
	for i := range records {
		if n.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
