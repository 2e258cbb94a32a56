package remote

import (
	"reflect"

	"github.com/mediavault/mediavault/internal/models"
)

// MatchFilter evaluates the supported query subset against a document:
// exact field equality and $or of exact-equality clauses. Operator
// expressions (values that are themselves objects, e.g. {"$gt": 5}) are not
// evaluated and match every document. This mirrors the remote query
// language only as far as local fallback needs it.
func MatchFilter(doc models.Document, filter models.Document) bool {
	if len(filter) == 0 {
		return true
	}
	for key, want := range filter {
		if key == "$or" {
			if !matchOr(doc, want) {
				return false
			}
			continue
		}
		if _, isExpr := want.(map[string]any); isExpr {
			// Unsupported operator expression: treated as match-all.
			continue
		}
		if !equalValue(doc[key], want) {
			return false
		}
	}
	return true
}

func matchOr(doc models.Document, raw any) bool {
	clauses, ok := raw.([]any)
	if !ok {
		// Also accept a slice of documents built in code.
		if typed, ok2 := raw.([]models.Document); ok2 {
			for _, clause := range typed {
				if matchClause(doc, clause) {
					return true
				}
			}
			return false
		}
		return true
	}
	for _, rawClause := range clauses {
		m, ok := rawClause.(map[string]any)
		if !ok {
			continue
		}
		if matchClause(doc, models.Document(m)) {
			return true
		}
	}
	return false
}

func matchClause(doc models.Document, clause models.Document) bool {
	for key, want := range clause {
		if _, isExpr := want.(map[string]any); isExpr {
			continue
		}
		if !equalValue(doc[key], want) {
			return false
		}
	}
	return true
}

// equalValue compares loosely across numeric representations, since values
// that round-tripped through JSON arrive as float64 while filters built in
// code may carry ints.
func equalValue(got, want any) bool {
	if gf, ok := asFloat(got); ok {
		if wf, ok2 := asFloat(want); ok2 {
			return gf == wf
		}
		return false
	}
	return reflect.DeepEqual(got, want)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
