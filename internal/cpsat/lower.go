package cpsat

import (
	"fmt"

	mk "github.com/gitrdm/gokanlogic/pkg/minikanren"
)

// lowering translates one cpsat.Model into a gokando finite-domain model.
// gokando's domains are 1-indexed ([1, MaxValue]); ours allow an arbitrary
// (possibly negative) lo. Each IntVar gets a fixed per-variable offset so
// that gokandoValue = ourValue - offset, and every linear relation is
// re-expressed in gokando's space through a real mk.LinearSum (with a
// synthetic constant term absorbing whatever shift keeps its total
// variable's domain positive) before being wrapped, where needed, in a real
// mk.ReifiedConstraint/mk.GlobalCardinality/mk.MaxOfArray. The search
// itself (propagation, branch-and-bound) runs entirely inside gokando's
// Solver; nothing here re-implements bounds consistency.
type lowering struct {
	gm      *mk.Model
	gvar    map[int]*mk.FDVariable // our IntVar.id -> shifted gokando var
	offset  map[int]int            // our IntVar.id -> offset (ourVal = gokandoVal + offset)
	negVars map[int]*mk.FDVariable // our IntVar.id -> complement var, for negated literals
}

func newLowering() *lowering {
	return &lowering{
		gm:      mk.NewModel(),
		gvar:    make(map[int]*mk.FDVariable),
		offset:  make(map[int]int),
		negVars: make(map[int]*mk.FDVariable),
	}
}

// lowerModel builds the gokando model and returns it together with the
// objective FDVariable to hand to SolveOptimalWithOptions (a constant
// singleton when m has no declared objective).
func lowerModel(m *Model) (*lowering, *mk.FDVariable, error) {
	l := newLowering()

	for _, v := range m.vars {
		lo, ok := v.domain.Min()
		if !ok {
			return nil, nil, fmt.Errorf("cpsat: variable %q has an empty domain", v.name)
		}
		hi, _ := v.domain.Max()
		span := hi - lo + 1
		gv := l.gm.NewVariableWithName(mk.NewBitSetDomain(span), v.name)
		l.gvar[v.id] = gv
		l.offset[v.id] = lo - 1
	}

	for _, c := range m.constraints {
		if err := l.lowerConstraint(c); err != nil {
			return nil, nil, err
		}
	}
	for _, card := range m.cardinalities {
		if err := l.lowerCardinality(card); err != nil {
			return nil, nil, err
		}
	}
	for _, me := range m.maxEqualities {
		if err := l.lowerMaxEquality(me); err != nil {
			return nil, nil, err
		}
	}

	obj, err := l.lowerObjective(m)
	if err != nil {
		return nil, nil, err
	}
	return l, obj, nil
}

// gokandoVar returns the shifted gokando variable backing our IntVar v.
func (l *lowering) gokandoVar(v *IntVar) *mk.FDVariable { return l.gvar[v.id] }

// weightedSum builds a gokando LinearSum over vars/coeffs plus the constant
// k0 (already expressed in gokando-native units), introducing a singleton
// "constant" term so the sum's total variable can be forced into gokando's
// positive-domain convention. It returns the constraint, the total
// variable, and K such that (Σ coeffs[i]*vars[i].Value()) + k0 ==
// total.Value() + K — i.e. the caller's true target value equals
// total.Value() + K.
func (l *lowering) weightedSum(vars []*mk.FDVariable, coeffs []int, k0 int) (*mk.LinearSum, *mk.FDVariable, int, error) {
	rawLo, rawHi := 0, 0
	for i, v := range vars {
		c := coeffs[i]
		lo, hi := 1, v.Domain().MaxValue()
		if c >= 0 {
			rawLo += c * lo
			rawHi += c * hi
		} else {
			rawLo += c * hi
			rawHi += c * lo
		}
	}

	shift := 1 - rawLo
	constVar := l.gm.NewVariableWithName(mk.NewBitSetDomain(1), "")
	allVars := append(append([]*mk.FDVariable{}, vars...), constVar)
	allCoeffs := append(append([]int{}, coeffs...), shift)

	span := rawHi - rawLo + 1
	if span < 1 {
		span = 1
	}
	total := l.gm.NewVariableWithName(mk.NewBitSetDomain(span), "")

	sum, err := mk.NewLinearSum(allVars, allCoeffs, total)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("cpsat: building linear sum: %w", err)
	}
	// total.Value() == rawSum + shift, rawSum == Σcoeffs[i]*vars[i].Value(),
	// so the caller's target (rawSum + k0) == total.Value() - shift + k0.
	K := k0 - shift
	return sum, total, K, nil
}

// lowerLinearSum builds a gokando LinearSum for expr (translating each
// IntVar into its shifted gokando variable first) and returns it together
// with its total variable and K such that expr's true value equals
// total.Value() + K.
func (l *lowering) lowerLinearSum(expr LinearExpr) (*mk.LinearSum, *mk.FDVariable, int, error) {
	vars := make([]*mk.FDVariable, len(expr.Vars))
	coeffs := make([]int, len(expr.Vars))
	k0 := expr.Const
	for i, v := range expr.Vars {
		vars[i] = l.gokandoVar(v)
		coeffs[i] = expr.Coeffs[i]
		k0 += expr.Coeffs[i] * l.offset[v.id]
	}
	return l.weightedSum(vars, coeffs, k0)
}

// boolVarFor resolves a Literal to a {1,2}-valued gokando variable, lazily
// materializing the complement variable for negated literals (tied to the
// positive variable via the unconditional constraint pos + neg == 3, the
// only fixed point of gokando's {1,2} bool encoding).
func (l *lowering) boolVarFor(lit Literal) (*mk.FDVariable, error) {
	pos := l.gokandoVar(lit.Var)
	if !lit.Negated {
		return pos, nil
	}
	if neg, ok := l.negVars[lit.Var.id]; ok {
		return neg, nil
	}
	neg := l.gm.NewVariableWithName(mk.NewBitSetDomain(2), lit.Var.name+"$not")
	sum, total, k, err := l.weightedSum([]*mk.FDVariable{pos, neg}, []int{1, 1}, 0)
	if err != nil {
		return nil, fmt.Errorf("cpsat: building complement of %q: %w", lit.Var.name, err)
	}
	l.gm.AddConstraint(sum)
	cmp, err := l.compareToBound(total, k, OpEQ, 3)
	if err != nil {
		return nil, fmt.Errorf("cpsat: building complement of %q: %w", lit.Var.name, err)
	}
	l.gm.AddConstraint(cmp)
	l.negVars[lit.Var.id] = neg
	return neg, nil
}

// compareToBound builds a standalone comparison between total and the
// caller's threshold, given target == total.Value() + k (see weightedSum).
// It always produces one of gokando's own comparison primitives
// (Arithmetic for equality, Inequality for everything else) rather than
// narrowing total's domain directly, specifically so the result stays
// wrappable in a ReifiedConstraint: both Arithmetic and Inequality are
// handled by ReifiedConstraint's negation case, so reification works in
// both directions (boolVar true or false), not just forward.
func (l *lowering) compareToBound(total *mk.FDVariable, k int, op Comparator, bound int) (mk.PropagationConstraint, error) {
	want := bound - k // the value total.Value() must (not) equal/precede/follow

	always := func(trivial bool) (mk.PropagationConstraint, error) {
		if trivial {
			return mk.NewInequality(total, total, mk.LessEqual) // X <= X always holds
		}
		return mk.NewInequality(total, total, mk.LessThan) // X < X never holds
	}

	if want < 1 {
		switch op {
		case OpEQ, OpLE, OpLT:
			return always(false)
		default: // OpNE, OpGE, OpGT
			return always(true)
		}
	}

	constAt := func(v int) *mk.FDVariable {
		d := mk.NewBitSetDomain(v)
		return l.gm.NewVariableWithName(d.RemoveBelow(v), "")
	}

	switch op {
	case OpEQ:
		return mk.NewArithmetic(total, constAt(want), 0)
	case OpNE:
		return mk.NewInequality(total, constAt(want), mk.NotEqual)
	case OpLE:
		return mk.NewInequality(total, constAt(want), mk.LessEqual)
	case OpGE:
		return mk.NewInequality(total, constAt(want), mk.GreaterEqual)
	case OpLT:
		if want-1 < 1 {
			return always(false)
		}
		return mk.NewInequality(total, constAt(want-1), mk.LessEqual)
	case OpGT:
		if want+1 < 1 {
			return always(true)
		}
		return mk.NewInequality(total, constAt(want+1), mk.GreaterEqual)
	default:
		return nil, fmt.Errorf("cpsat: unsupported comparator %v", op)
	}
}

// lowerConstraint translates a single (possibly conditional) cpsat
// Constraint into a gokando LinearSum tied to its own total variable, plus
// a comparison between that total and the constraint's bound, wrapping the
// comparison in a ReifiedConstraint when an OnlyEnforceIf literal is
// present. Only the single-literal form is needed: every
// Add(...).OnlyEnforceIf call in this codebase supplies exactly one
// literal.
func (l *lowering) lowerConstraint(c *Constraint) error {
	sum, total, k, err := l.lowerLinearSum(c.expr)
	if err != nil {
		return err
	}
	l.gm.AddConstraint(sum)

	cmp, err := l.compareToBound(total, k, c.op, c.bound)
	if err != nil {
		return err
	}

	if len(c.enforceIf) == 0 {
		l.gm.AddConstraint(cmp)
		return nil
	}
	if len(c.enforceIf) != 1 {
		return fmt.Errorf("cpsat: OnlyEnforceIf with %d literals is not supported", len(c.enforceIf))
	}
	bv, err := l.boolVarFor(c.enforceIf[0])
	if err != nil {
		return err
	}
	reified, err := mk.NewReifiedConstraint(cmp, bv)
	if err != nil {
		return fmt.Errorf("cpsat: reifying constraint: %w", err)
	}
	l.gm.AddConstraint(reified)
	return nil
}

// lowerCardinality installs a GlobalCardinality constraint bounding how
// many of spec.vars resolve to true (gokando value 2).
func (l *lowering) lowerCardinality(spec cardinalitySpec) error {
	vars := make([]*mk.FDVariable, len(spec.vars))
	for i, b := range spec.vars {
		vars[i] = l.gokandoVar(b.v)
	}
	minCount := []int{0, 0, spec.min}
	maxCount := []int{0, len(spec.vars), spec.max}
	gcc, err := mk.NewGlobalCardinality(vars, minCount, maxCount)
	if err != nil {
		return fmt.Errorf("cpsat: building cardinality constraint: %w", err)
	}
	l.gm.AddConstraint(gcc)
	return nil
}

// lowerMaxEquality installs result == max(terms...) via gokando's
// MaxOfArray.
func (l *lowering) lowerMaxEquality(spec maxEqualitySpec) error {
	terms := make([]*mk.FDVariable, len(spec.terms))
	for i, t := range spec.terms {
		terms[i] = l.gokandoVar(t.v)
	}
	r := l.gokandoVar(spec.result.v)
	maxc, err := mk.NewMax(terms, r)
	if err != nil {
		return fmt.Errorf("cpsat: building max-equality constraint: %w", err)
	}
	l.gm.AddConstraint(maxc)
	return nil
}

// lowerObjective builds the weighted-sum objective variable
// SolveOptimalWithOptions will maximize. Models with no declared objective
// get a constant singleton, so Solve always routes through the same
// optimize-driven code path regardless of whether the caller actually wants
// an optimum.
func (l *lowering) lowerObjective(m *Model) (*mk.FDVariable, error) {
	if len(m.objective) == 0 {
		return l.gm.NewVariableWithName(mk.NewBitSetDomain(1), "objective"), nil
	}
	vars := make([]*mk.FDVariable, len(m.objective))
	coeffs := make([]int, len(m.objective))
	for i, term := range m.objective {
		vars[i] = l.gokandoVar(term.v)
		coeffs[i] = term.weight
	}
	sum, total, _, err := l.weightedSum(vars, coeffs, 0)
	if err != nil {
		return nil, err
	}
	l.gm.AddConstraint(sum)
	return total, nil
}
