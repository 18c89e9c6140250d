// Package mm verifies Metamath databases.
//
// A database is read as a flat token stream (Tokenizer strips comments,
// Includer expands $[ $] directives) and processed statement by statement
// by a Loader. Declarations are recorded in a Database, which keeps a
// stack of scopes for ${ $} blocks. Every $p statement is checked as soon
// as it is read: its proof is replayed on a stack of expressions and each
// step that applies an axiom or theorem goes through Unify, which computes
// the substitution, checks essential hypotheses and propagates disjoint
// variable restrictions.
//
// Verification stops at the first error. The only exception is a proof
// containing "?" steps, which is reported as an IncompleteProof warning.
//
// Usage:
//
//	res, err := mm.VerifyFile(ctx, "set.mm", mm.WithLogger(logger))
//	if err != nil {
//	    var diag *mm.Error
//	    if errors.As(err, &diag) {
//	        // diag.Kind, diag.Label, diag.Pos
//	    }
//	}
//	for _, w := range res.Warnings {
//	    // incomplete proofs
//	}
package mm
