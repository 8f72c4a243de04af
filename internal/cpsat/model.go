package cpsat

import "fmt"

// IntVar is a handle to a bounded integer decision variable. Values are
// resolved by Solve and read back through Solution.Value.
type IntVar struct {
	id     int
	name   string
	domain Domain
}

// BoolVar is an IntVar restricted to {0, 1}; provided as a distinct type so
// call sites read the way the OR-Tools surface does.
type BoolVar struct {
	v *IntVar
}

// Var exposes the underlying IntVar, for callers building a LinearExpr by
// hand outside the usual Sum/SumBools helpers.
func (b BoolVar) Var() *IntVar { return b.v }

// Not returns the negated literal (1 - b), used in OnlyEnforceIf chains.
func (b BoolVar) Not() Literal {
	return Literal{Var: b.v, Negated: true}
}

// Literal is a (variable, polarity) pair: the positive literal is true when
// the underlying boolean variable is 1, negative when it is 0.
type Literal struct {
	Var     *IntVar
	Negated bool
}

// Lit builds a positive literal out of a BoolVar, for use where a plain
// Literal is expected (e.g. OnlyEnforceIf(b.Lit())).
func (b BoolVar) Lit() Literal { return Literal{Var: b.v} }

func litValue(l Literal, value func(*IntVar) int) bool {
	v := value(l.Var) != 0
	if l.Negated {
		return !v
	}
	return v
}

// Comparator enumerates the relational operators a LinearConstraint may use.
type Comparator int

const (
	OpEQ Comparator = iota
	OpNE
	OpLE
	OpGE
	OpLT
	OpGT
)

// LinearExpr is sum(coeffs[i] * vars[i]) + constant.
type LinearExpr struct {
	Vars   []*IntVar
	Coeffs []int
	Const  int
}

// NewExpr builds a linear expression from a single variable (coefficient 1).
func NewExpr(v *IntVar) LinearExpr {
	return LinearExpr{Vars: []*IntVar{v}, Coeffs: []int{1}}
}

// Sum builds sum(vars) as a linear expression, each with coefficient 1.
func Sum(vars ...*IntVar) LinearExpr {
	e := LinearExpr{Vars: make([]*IntVar, len(vars)), Coeffs: make([]int, len(vars))}
	for i, v := range vars {
		e.Vars[i] = v
		e.Coeffs[i] = 1
	}
	return e
}

// SumBools builds sum(bools) as a linear expression over boolean variables.
func SumBools(bools []BoolVar) LinearExpr {
	vars := make([]*IntVar, len(bools))
	for i, b := range bools {
		vars[i] = b.v
	}
	return Sum(vars...)
}

// Plus returns e + c.
func (e LinearExpr) Plus(c int) LinearExpr {
	e.Const += c
	return e
}

// Constraint is a (possibly conditional) linear relation installed on a
// Model. It is always active unless OnlyEnforceIf literals are supplied, in
// which case it only binds when every literal evaluates true.
type Constraint struct {
	expr      LinearExpr
	op        Comparator
	bound     int
	enforceIf []Literal
}

// OnlyEnforceIf restricts the constraint to hold only when every literal in
// lits is true, mirroring cp_model.Constraint.OnlyEnforceIf.
func (c *Constraint) OnlyEnforceIf(lits ...Literal) *Constraint {
	c.enforceIf = append(c.enforceIf, lits...)
	return c
}

// Model accumulates decision variables, hard constraints, and a weighted
// objective. It is built once per solve and handed to Solve.
type Model struct {
	vars          []*IntVar
	constraints   []*Constraint
	cardinalities []cardinalitySpec
	maxEqualities []maxEqualitySpec
	objective     []objectiveTerm
	maximize      bool
}

type objectiveTerm struct {
	v      *IntVar // coefficient applies to this 0/1 (or general) variable
	weight int
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewIntVar allocates a fresh integer variable with domain [lo, hi].
func (m *Model) NewIntVar(lo, hi int, name string) *IntVar {
	v := &IntVar{id: len(m.vars), name: name, domain: NewDomain(lo, hi)}
	m.vars = append(m.vars, v)
	return v
}

// NewBoolVar allocates a fresh boolean variable.
func (m *Model) NewBoolVar(name string) BoolVar {
	return BoolVar{v: m.NewIntVar(0, 1, name)}
}

// Add installs expr `op` bound as a hard constraint (subject to any
// subsequent OnlyEnforceIf) and returns it for chaining.
func (m *Model) Add(expr LinearExpr, op Comparator, bound int) *Constraint {
	c := &Constraint{expr: expr, op: op, bound: bound}
	m.constraints = append(m.constraints, c)
	return c
}

// AddImplication installs a ⇒ b as ¬a ∨ b.
func (m *Model) AddImplication(a, b Literal) *Constraint {
	return m.AddBoolOr(negate(a), b)
}

// AddBoolOr installs at least one literal true.
func (m *Model) AddBoolOr(lits ...Literal) *Constraint {
	// Encoded as sum(lit-as-0/1) >= 1, expressed by flipping negated
	// literals into (1 - var) terms via the constant/coefficient trick:
	// sum_i (neg_i ? (1 - x_i) : x_i) >= 1  <=>  sum_i (coeff_i * x_i) >= 1 - sum(neg consts)
	e := LinearExpr{}
	constAdj := 0
	for _, l := range lits {
		if l.Negated {
			e.Vars = append(e.Vars, l.Var)
			e.Coeffs = append(e.Coeffs, -1)
			constAdj++
		} else {
			e.Vars = append(e.Vars, l.Var)
			e.Coeffs = append(e.Coeffs, 1)
		}
	}
	c := &Constraint{expr: e, op: OpGE, bound: 1 - constAdj}
	m.constraints = append(m.constraints, c)
	return c
}

// AddBoolAnd installs every literal true (unconditionally, or under a
// subsequent OnlyEnforceIf).
func (m *Model) AddBoolAnd(lits ...Literal) *Constraint {
	// sum(lit) == len(lits), using the same negation trick as AddBoolOr.
	e := LinearExpr{}
	constAdj := 0
	for _, l := range lits {
		if l.Negated {
			e.Vars = append(e.Vars, l.Var)
			e.Coeffs = append(e.Coeffs, -1)
			constAdj++
		} else {
			e.Vars = append(e.Vars, l.Var)
			e.Coeffs = append(e.Coeffs, 1)
		}
	}
	c := &Constraint{expr: e, op: OpEQ, bound: len(lits) - constAdj - constAdj}
	// sum(adjusted) must equal (#positive - #negative-that-must-be-0)... this
	// helper is only ever used with small, literal-only lists in this
	// package, so we special case it exactly rather than derive it
	// generally: len(lits) positives when none are negated.
	if constAdj == 0 {
		c.bound = len(lits)
	} else {
		c.bound = len(lits) - constAdj
	}
	m.constraints = append(m.constraints, c)
	return c
}

func negate(l Literal) Literal {
	return Literal{Var: l.Var, Negated: !l.Negated}
}

// Reifier caches "is this IntVar equal to this value" booleans so repeated
// equality tests on the same (var, value) pair within one model share a
// single reification boolean, per the Design Notes micro-optimization.
type Reifier struct {
	m     *Model
	cache map[reifyKey]BoolVar
}

type reifyKey struct {
	v     *IntVar
	value int
}

// NewReifier returns a cache bound to m.
func NewReifier(m *Model) *Reifier {
	return &Reifier{m: m, cache: make(map[reifyKey]BoolVar)}
}

// Eq returns a boolean b with b ⇔ (v == value), installing the two
// OnlyEnforceIf implications the first time the pair is requested.
func (r *Reifier) Eq(v *IntVar, value int, name string) BoolVar {
	key := reifyKey{v: v, value: value}
	if b, ok := r.cache[key]; ok {
		return b
	}
	b := r.m.NewBoolVar(name)
	r.m.Add(NewExpr(v), OpEQ, value).OnlyEnforceIf(b.Lit())
	r.m.Add(NewExpr(v), OpNE, value).OnlyEnforceIf(b.Not())
	r.cache[key] = b
	return b
}

// NewAndVar returns a boolean b with b ⇔ AND(lits), installing the
// implications both directions need: b ⇒ each literal, and all literals ⇒
// b (via a single clause). Grounded on the "both_occupied" reification
// idiom in original_source/src/backend/api_endpoints/AsyncCompute.py.
func (m *Model) NewAndVar(name string, lits ...Literal) BoolVar {
	b := m.NewBoolVar(name)
	for _, l := range lits {
		m.AddImplication(b.Lit(), l)
	}
	clause := make([]Literal, 0, len(lits)+1)
	for _, l := range lits {
		clause = append(clause, negate(l))
	}
	clause = append(clause, b.Lit())
	m.AddBoolOr(clause...)
	return b
}

// NewEqVar returns a boolean b with b ⇔ (a == other), for two general
// IntVars (not just an IntVar against a constant, which Reifier.Eq
// already covers).
func (m *Model) NewEqVar(a, other *IntVar, name string) BoolVar {
	b := m.NewBoolVar(name)
	diff := LinearExpr{Vars: []*IntVar{a, other}, Coeffs: []int{1, -1}}
	m.Add(diff, OpEQ, 0).OnlyEnforceIf(b.Lit())
	m.Add(diff, OpNE, 0).OnlyEnforceIf(b.Not())
	return b
}

// AddMaximizeTerm adds weight * v to the objective (v is expected to be a
// BoolVar in every current caller, but any bounded IntVar works).
func (m *Model) AddMaximizeTerm(v *IntVar, weight int) {
	m.objective = append(m.objective, objectiveTerm{v: v, weight: weight})
	m.maximize = true
}

// AddMaximizeBoolTerm is sugar for AddMaximizeTerm(b.v, weight).
func (m *Model) AddMaximizeBoolTerm(b BoolVar, weight int) {
	m.AddMaximizeTerm(b.v, weight)
}

func (m *Model) String() string {
	return fmt.Sprintf("cpsat.Model{vars=%d constraints=%d objectiveTerms=%d}", len(m.vars), len(m.constraints), len(m.objective))
}
