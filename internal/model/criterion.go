package model

// Operators supported by a search criterion.
const (
	OpEq       = "=="
	OpGt       = ">"
	OpLt       = "<"
	OpGte      = ">="
	OpLte      = "<="
	OpContains = "contains"
)

// Joiners.
const (
	JoinAnd = "AND"
	JoinOr  = "OR"
)

// Criterion is one predicate of a search. Joiner combines everything up to
// and including this criterion with the next one; it is ignored on the last
// criterion and anything but AND means OR.
type Criterion struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Joiner   string `json:"joiner,omitempty"`
}

// ValidOperator reports whether op is a supported comparison.
func ValidOperator(op string) bool {
	switch op {
	case OpEq, OpGt, OpLt, OpGte, OpLte, OpContains:
		return true
	}
	return false
}
