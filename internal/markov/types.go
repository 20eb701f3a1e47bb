// Package markov implements a fixed-order word Markov chain: link extraction,
// weighted sampling, chain walking and the bot that learns from and replies to
// free text.
package markov

import (
	"fmt"
	"strconv"
	"strings"
)

// Token is a single word of learned or generated text.
type Token = string

// Sentinel marks the end of an utterance. Tokenize drops it from input so it
// never collides with a learned word.
const Sentinel Token = "\x00"

// State is the ordered window of the N most recent tokens.
type State []Token

// Key returns an unambiguous encoding of the state usable as a map key.
func (s State) Key() string {
	var b strings.Builder
	for _, t := range s {
		b.WriteString(strconv.Itoa(len(t)))
		b.WriteByte(':')
		b.WriteString(t)
	}
	return b.String()
}

// ParseStateKey decodes the output of State.Key.
func ParseStateKey(key string) (State, error) {
	var s State
	for len(key) > 0 {
		i := strings.IndexByte(key, ':')
		if i <= 0 {
			return nil, fmt.Errorf("parse state key: missing length prefix")
		}
		n, err := strconv.Atoi(key[:i])
		if err != nil || n < 0 || n > len(key)-i-1 {
			return nil, fmt.Errorf("parse state key: bad length %q", key[:i])
		}
		s = append(s, key[i+1:i+1+n])
		key = key[i+1+n:]
	}
	return s, nil
}

// Clone returns a copy that does not share the backing array.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both states hold the same tokens in the same order.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Link is one observed transition from a state to its successor.
type Link struct {
	From State
	To   Token
}

// Transition is a successor token and how often it was observed.
type Transition struct {
	Token  Token
	Weight uint32
}

// Transitions is the weight map of one state, kept in a stable order.
type Transitions []Transition

// Total returns the sum of all weights.
func (ts Transitions) Total() uint64 {
	var sum uint64
	for _, t := range ts {
		sum += uint64(t.Weight)
	}
	return sum
}

// Weight returns the weight recorded for tok, or 0.
func (ts Transitions) Weight(tok Token) uint32 {
	for _, t := range ts {
		if t.Token == tok {
			return t.Weight
		}
	}
	return 0
}

// Tokenize splits text on whitespace. Tokens equal to Sentinel are dropped.
func Tokenize(text string) []Token {
	tokens, _ := tokenize(text)
	return tokens
}

// tokenize is Tokenize that also reports how many sentinels it dropped.
func tokenize(text string) ([]Token, int) {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if f == Sentinel {
			continue
		}
		out = append(out, f)
	}
	return out, len(fields) - len(out)
}
