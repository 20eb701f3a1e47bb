package markov

import "iter"

// Links turns a token stream into the links observed by a sliding window of
// the given order. The input is consumed once, lazily. Inputs no longer than
// order, and order <= 0, produce no links.
func Links(tokens iter.Seq[Token], order int) iter.Seq[Link] {
	return func(yield func(Link) bool) {
		if order <= 0 {
			return
		}
		window := make(State, 0, order)
		for tok := range tokens {
			if len(window) < order {
				window = append(window, tok)
				continue
			}
			if !yield(Link{From: window.Clone(), To: tok}) {
				return
			}
			copy(window, window[1:])
			window[order-1] = tok
		}
	}
}
