package preprocess

import "mincc/internal/token"

// pushbackReader adds an arbitrary-depth pushback buffer in front of a pull
// function, used at several layers: raw tokens off the input stack,
// expanded tokens off the macro expander (spec.md §4.1: "Pushback:
// expanded tokens may be pushed front to support lookahead").
type pushbackReader struct {
	pending []token.Token // stack: pending[len-1] is next
	pull    func() token.Token
}

func newPushbackReader(pull func() token.Token) *pushbackReader {
	return &pushbackReader{pull: pull}
}

func (r *pushbackReader) next() token.Token {
	if n := len(r.pending); n > 0 {
		tok := r.pending[n-1]
		r.pending = r.pending[:n-1]
		return tok
	}
	return r.pull()
}

func (r *pushbackReader) pushFront(toks ...token.Token) {
	// toks is in forward order; pending is a LIFO stack, so push in
	// reverse so toks[0] pops first.
	for i := len(toks) - 1; i >= 0; i-- {
		r.pending = append(r.pending, toks[i])
	}
}
