package cpsat

// cardinalitySpec is a bound on how many of a set of boolean variables may
// resolve to true, lowered onto gokando's GlobalCardinality constraint
// (pkg/minikanren/gcc.go) rather than a plain linear inequality, so the
// solver gets the GCC's dedicated saturation pruning instead of generic
// bounds consistency.
type cardinalitySpec struct {
	vars     []BoolVar
	min, max int
}

// maxEqualitySpec is a result == max(terms...) relation, lowered onto
// gokando's MaxOfArray constraint (pkg/minikanren/minmax.go).
type maxEqualitySpec struct {
	result BoolVar
	terms  []BoolVar
}

// AtMost installs sum(vars) <= n as a hard constraint, the boolean-counting
// form used for weekly/daily caps.
func (m *Model) AtMost(vars []BoolVar, n int) {
	m.cardinalities = append(m.cardinalities, cardinalitySpec{vars: vars, min: 0, max: n})
}

// AtLeast installs sum(vars) >= n.
func (m *Model) AtLeast(vars []BoolVar, n int) {
	m.cardinalities = append(m.cardinalities, cardinalitySpec{vars: vars, min: n, max: len(vars)})
}

// Exactly installs sum(vars) == n.
func (m *Model) Exactly(vars []BoolVar, n int) {
	m.cardinalities = append(m.cardinalities, cardinalitySpec{vars: vars, min: n, max: n})
}

// MaxEquality installs result == max(terms...), the "free-now, busy-later"
// inner-gap indicator the timetable model needs.
func (m *Model) MaxEquality(result BoolVar, terms ...BoolVar) {
	m.maxEqualities = append(m.maxEqualities, maxEqualitySpec{result: result, terms: append([]BoolVar{}, terms...)})
}
