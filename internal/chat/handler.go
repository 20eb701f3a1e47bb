package chat

import (
	"strings"

	"github.com/rcliao/markov-bot/internal/markov"
)

// Handler turns raw lines into commands. A line addressed to the bot
// ("@name ...") always gets a reply and loses the mention; any other line
// gets one with probability verbosity.
type Handler struct {
	name      string
	verbosity float64
	src       markov.Source
}

// NewHandler returns a handler for a bot called name. A nil src uses
// markov.SystemSource.
func NewHandler(name string, verbosity float64, src markov.Source) *Handler {
	if src == nil {
		src = markov.SystemSource{}
	}
	return &Handler{name: name, verbosity: verbosity, src: src}
}

// Command builds the command for one inbound line.
func (h *Handler) Command(line string) Command {
	content, mentioned := h.stripMention(line)
	return newCommand(content, mentioned || h.roll())
}

func (h *Handler) stripMention(line string) (string, bool) {
	if h.name == "" {
		return line, false
	}
	mention := "@" + h.name
	rest, ok := strings.CutPrefix(strings.TrimLeft(line, " \t"), mention)
	if !ok {
		return line, false
	}
	// "@markovian" is not a mention of "markov".
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") &&
		!strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, ",") {
		return line, false
	}
	rest = strings.TrimLeft(rest, ":,")
	return strings.TrimSpace(rest), true
}

const float53 = 1 << 53

// roll reports whether a uniform draw in [0, 1) falls below verbosity.
func (h *Handler) roll() bool {
	if h.verbosity <= 0 {
		return false
	}
	return float64(h.src.Uint64N(float53))/float53 < h.verbosity
}
