package media

// Verifier checks a bearer credential. Implemented by the auth service.
type Verifier interface {
	Verify(token string) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(token string) error

func (f VerifierFunc) Verify(token string) error { return f(token) }

// Gate decides whether a caller may read an original object: public once
// approved, otherwise only with a valid credential. Pure function of the
// object and the supplied token; previews inherit their original's decision
// at the call site.
type Gate struct {
	verifier Verifier
}

// NewGate builds an access gate over the given credential verifier.
func NewGate(verifier Verifier) *Gate {
	return &Gate{verifier: verifier}
}

// Allow returns nil when the object may be served, ErrNotApproved otherwise.
func (g *Gate) Allow(o Object, token string) error {
	if o.Approved {
		return nil
	}
	if token != "" && g.verifier.Verify(token) == nil {
		return nil
	}
	return ErrNotApproved
}
