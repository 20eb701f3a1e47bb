// Package chat connects a markov bot to a line-oriented conversation.
//
// Every inbound message is learned. A reply is produced only when the
// Handler decides the message calls for one. A single worker processes
// messages in arrival order so the bot's store sees one writer.
package chat

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Command is one inbound message queued for the worker.
type Command struct {
	ID          ulid.ULID
	Content     string
	ShouldReply bool
	Received    time.Time

	// reply receives at most one generated sentence and is then closed.
	reply chan string
}

func newCommand(content string, shouldReply bool) Command {
	cmd := Command{
		ID:          ulid.Make(),
		Content:     content,
		ShouldReply: shouldReply,
		Received:    time.Now().UTC(),
	}
	if shouldReply {
		cmd.reply = make(chan string, 1)
	}
	return cmd
}

// finish delivers text (if any) to whoever waits on the command.
func (c Command) finish(text string) {
	if c.reply == nil {
		return
	}
	if text != "" {
		c.reply <- text
	}
	close(c.reply)
}
