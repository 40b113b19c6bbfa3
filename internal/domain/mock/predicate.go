package mock

// Predicate tests a string value and returns true if it matches.
type Predicate func(string) bool

// And returns a predicate that requires all predicates to match.
func And(predicates ...Predicate) Predicate {
	return func(s string) bool {
		for _, p := range predicates {
			if !p(s) {
				return false
			}
		}
		return true
	}
}

// Always returns a predicate that always matches.
func Always() Predicate {
	return func(string) bool { return true }
}

// FieldPredicate binds a named request field to its compiled predicate.
// Field names follow the conventions "header:<Name>", "query:<name>" and
// "body:<extractor>".
type FieldPredicate struct {
	Field     string
	Predicate Predicate
}
