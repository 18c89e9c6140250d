package mm

import (
	"go/token"
	"math"
)

// unknownStep is the label of an intentionally missing proof step.
const unknownStep = "?"

// interpreter replays a proof on a stack of expressions. A nil entry is the
// result of an unknown step.
type interpreter struct {
	db         *Database
	theorem    *Assertion
	stack      []Expression
	incomplete bool
}

func newInterpreter(db *Database, theorem *Assertion) *interpreter {
	return &interpreter{db: db, theorem: theorem}
}

func (in *interpreter) push(e Expression) {
	in.stack = append(in.stack, e)
}

func (in *interpreter) unknown() {
	in.incomplete = true
	in.push(nil)
}

// step resolves label and applies it.
func (in *interpreter) step(label string, pos token.Position) *Error {
	if label == unknownStep {
		in.unknown()
		return nil
	}
	if label == in.theorem.Label {
		return in.fail(KindUndeclaredLabel, pos, "proof of theorem %s refers to itself", label)
	}
	if in.db.IsActiveHyp(label) {
		h, _ := in.db.Hypothesis(label)
		in.push(h.Expression)
		return nil
	}
	if a, ok := in.db.Assertion(label); ok {
		return in.apply(a, pos)
	}
	return in.fail(KindUndeclaredLabel, pos,
		"proof of theorem %s refers to %s which is not an active statement", in.theorem.Label, label)
}

// apply pops the arguments of a and pushes its substituted conclusion.
func (in *interpreter) apply(a *Assertion, pos token.Position) *Error {
	n := len(a.Hypotheses)
	if len(in.stack) < n {
		return in.fail(KindProofStackMismatch, pos,
			"in proof of theorem %s not enough items found on stack for %s (need %d, have %d)",
			in.theorem.Label, a.Label, n, len(in.stack))
	}
	base := len(in.stack) - n
	args := in.stack[base:]

	for _, arg := range args {
		if arg == nil {
			in.stack = append(in.stack[:base], nil)
			return nil
		}
	}

	_, result, err := Unify(in.db, a, args)
	if err != nil {
		err.Msg = "in proof of theorem " + in.theorem.Label + ": " + err.Msg
		return err.at("$p", in.theorem.Label, pos)
	}
	in.stack = append(in.stack[:base], result)
	return nil
}

// finish checks that exactly the theorem's statement is left on the stack.
// The check is skipped for incomplete proofs.
func (in *interpreter) finish(pos token.Position) *Error {
	if in.incomplete {
		return nil
	}
	switch len(in.stack) {
	case 0:
		return in.fail(KindProofStackMismatch, pos, "proof of theorem %s leaves the stack empty", in.theorem.Label)
	case 1:
	default:
		return in.fail(KindProofStackMismatch, pos,
			"proof of theorem %s does not end with only one item on the stack (%d items)", in.theorem.Label, len(in.stack))
	}
	if got := in.stack[0]; !got.Equal(in.theorem.Expression) {
		return in.fail(KindProofStackMismatch, pos,
			"proof of theorem %s proves wrong statement %q", in.theorem.Label, got.String())
	}
	return nil
}

func (in *interpreter) fail(kind Kind, pos token.Position, format string, args ...any) *Error {
	return newError(kind, format, args...).at("$p", in.theorem.Label, pos)
}

// VerifyNormalProof checks a proof given as a list of labels. It reports
// whether the proof contained unknown steps; such proofs are not checked
// against the theorem's statement.
func VerifyNormalProof(db *Database, theorem *Assertion, steps []string) (bool, *Error) {
	toks := make([]Token, len(steps))
	for i, s := range steps {
		toks[i] = Token{Text: s}
	}
	return verifyNormal(db, theorem, toks, token.Position{})
}

func verifyNormal(db *Database, theorem *Assertion, steps []Token, end token.Position) (bool, *Error) {
	in := newInterpreter(db, theorem)
	for _, s := range steps {
		if err := in.step(s.Text, s.Pos); err != nil {
			return in.incomplete, err
		}
	}
	return in.incomplete, in.finish(end)
}

// VerifyCompressedProof checks a proof in compressed format: labels is the
// parenthesized label list and letters the concatenated step letters.
func VerifyCompressedProof(db *Database, theorem *Assertion, labels []string, letters string) (bool, *Error) {
	return verifyCompressed(db, theorem, labels, letters, token.Position{})
}

func verifyCompressed(db *Database, theorem *Assertion, labels []string, letters string, pos token.Position) (bool, *Error) {
	nums, err := decodeCompressed(letters)
	if err != nil {
		return false, err.at("$p", theorem.Label, pos)
	}

	in := newInterpreter(db, theorem)
	mandatory := len(theorem.Hypotheses)
	labelEnd := mandatory + len(labels)
	var saved []Expression

	for _, n := range nums {
		switch {
		case n < 0:
			in.unknown()
		case n == 0:
			if len(in.stack) == 0 {
				return in.incomplete, in.fail(KindProofStackMismatch, pos,
					"compressed proof of theorem %s saves a step from an empty stack", theorem.Label)
			}
			saved = append(saved, in.stack[len(in.stack)-1])
		case n <= mandatory:
			h, _ := db.Hypothesis(theorem.Hypotheses[n-1])
			in.push(h.Expression)
		case n <= labelEnd:
			if err := in.step(labels[n-mandatory-1], pos); err != nil {
				return in.incomplete, err
			}
		default:
			k := n - labelEnd - 1
			if k >= len(saved) {
				return in.incomplete, in.fail(KindSyntax, pos,
					"number %d in compressed proof of %s is too high", n, theorem.Label)
			}
			in.push(saved[k])
		}
	}
	return in.incomplete, in.finish(pos)
}

// decodeCompressed turns the step letters into numbers. U-Y are base-5
// high digits, A-T end a number (1..20), Z (0) marks the previous step for
// reuse and ? (-1) is an unknown step.
func decodeCompressed(letters string) ([]int, *Error) {
	var nums []int
	num := 0
	justGotNum := false
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		switch {
		case ch >= 'A' && ch <= 'T':
			add := int(ch-'A') + 1
			if num > (math.MaxInt-add)/20 {
				return nil, newError(KindSyntax, "overflow computing numbers in compressed proof")
			}
			nums = append(nums, 20*num+add)
			num = 0
			justGotNum = true
		case ch >= 'U' && ch <= 'Y':
			add := int(ch-'T')
			if num > (math.MaxInt-add)/5 {
				return nil, newError(KindSyntax, "overflow computing numbers in compressed proof")
			}
			num = 5*num + add
			justGotNum = false
		case ch == 'Z':
			if !justGotNum {
				return nil, newError(KindSyntax, "stray Z found in compressed proof")
			}
			nums = append(nums, 0)
			justGotNum = false
		case ch == '?':
			if num != 0 {
				return nil, newError(KindSyntax, "? inside a number in compressed proof")
			}
			nums = append(nums, -1)
			justGotNum = false
		default:
			return nil, newError(KindSyntax, "bogus character %q found in compressed proof", ch)
		}
	}
	if num != 0 {
		return nil, newError(KindSyntax, "compressed proof ends in unfinished number")
	}
	return nums, nil
}
