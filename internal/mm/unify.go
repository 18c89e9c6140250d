package mm

// Substitution maps each variable of an assertion to the symbols that
// replace it. The typecode of the matched expression is not included.
type Substitution map[string]Expression

// Apply replaces every variable of expr that has a binding. Symbols
// without a binding are copied unchanged.
func (s Substitution) Apply(expr Expression) Expression {
	out := make(Expression, 0, len(expr))
	for _, sym := range expr {
		if repl, ok := s[sym]; ok {
			out = append(out, repl...)
			continue
		}
		out = append(out, sym)
	}
	return out
}

// Unify applies assertion a to args, which must line up one-to-one with
// a.Hypotheses. Floating hypotheses bind their variable to the tail of the
// matching argument; essential hypotheses must equal their argument after
// substitution. Disjoint variable restrictions of a are then carried
// through the substitution and checked against the restrictions active in
// db. Unify never modifies db.
func Unify(db *Database, a *Assertion, args []Expression) (Substitution, Expression, *Error) {
	if len(args) != len(a.Hypotheses) {
		return nil, nil, newError(KindProofStackMismatch,
			"%s expects %d hypotheses but %d items were supplied", a.Label, len(a.Hypotheses), len(args))
	}

	subst := make(Substitution, len(args))
	for i, hl := range a.Hypotheses {
		h, ok := db.Hypothesis(hl)
		if !ok {
			return nil, nil, newError(KindUndeclaredLabel, "hypothesis %s of %s is not declared", hl, a.Label)
		}
		arg := args[i]

		if h.Floating {
			if len(arg) == 0 || arg[0] != h.Typecode() {
				return nil, nil, newError(KindTypeMismatch,
					"unification failed for %s: hypothesis %s expects typecode %s but found %q",
					a.Label, hl, h.Typecode(), arg.String())
			}
			subst[h.Variable()] = arg[1:]
			continue
		}

		if want := subst.Apply(h.Expression); !want.Equal(arg) {
			return nil, nil, newError(KindProofStackMismatch,
				"unification failed for %s: hypothesis %s expects %q but found %q",
				a.Label, hl, want.String(), arg.String())
		}
	}

	if err := checkDisjoint(db, a, subst); err != nil {
		return nil, nil, err
	}
	return subst, subst.Apply(a.Expression), nil
}

func checkDisjoint(db *Database, a *Assertion, subst Substitution) *Error {
	for _, p := range a.Disjoint {
		xs := variablesOf(db, subst[p.X])
		ys := variablesOf(db, subst[p.Y])
		for _, x := range xs {
			for _, y := range ys {
				if !db.IsDisjoint(x, y) {
					return newError(KindDisjointViolation,
						"disjoint variable restriction (%s, %s) of %s violated: %s and %s are not disjoint",
						p.X, p.Y, a.Label, x, y)
				}
			}
		}
	}
	return nil
}

// variablesOf lists the distinct variables of expr in order of appearance.
func variablesOf(db *Database, expr Expression) []string {
	var vars []string
	seen := make(map[string]struct{})
	for _, sym := range expr {
		if !db.IsVariable(sym) {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		vars = append(vars, sym)
	}
	return vars
}
