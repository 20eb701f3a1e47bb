package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rcliao/markov-bot/internal/config"
	"github.com/rcliao/markov-bot/internal/markov"
	"github.com/rcliao/markov-bot/internal/telemetry"
)

// Responder is the part of markov.Bot the service drives.
type Responder interface {
	Learn(ctx context.Context, text string) error
	Reply(ctx context.Context, text string) (string, error)
}

// Service reads messages, feeds them to a Responder through a single worker
// and writes replies back.
type Service struct {
	bot       Responder
	handler   *Handler
	limiter   *rate.Limiter
	queueSize int
	logger    *zap.Logger
	tracer    trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource sets the randomness behind unprompted replies.
func WithSource(src markov.Source) ServiceOption {
	return func(s *Service) {
		if src != nil {
			s.handler.src = src
		}
	}
}

// NewService creates a service from chat settings.
func NewService(bot Responder, cfg config.ChatConfig, opts ...ServiceOption) *Service {
	limit := rate.Inf
	if cfg.ReplyRate > 0 {
		limit = rate.Limit(cfg.ReplyRate)
	}
	burst := cfg.ReplyBurst
	if burst < 1 {
		burst = 1
	}
	queue := cfg.QueueSize
	if queue < 1 {
		queue = 1
	}
	s := &Service{
		bot:       bot,
		handler:   NewHandler(cfg.Name, cfg.Verbosity, nil),
		limiter:   rate.NewLimiter(limit, burst),
		queueSize: queue,
		logger:    zap.NewNop(),
		tracer:    telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes one message per line of in until in is exhausted or ctx is
// done. Replies are written to out, one per line. When in is an io.Closer it
// is closed on cancellation to unblock the pending read.
func (s *Service) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if c, ok := in.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	cmds := make(chan Command, s.queueSize)

	g.Go(func() error {
		return s.work(gctx, cmds)
	})
	g.Go(func() error {
		defer close(cmds)
		err := s.read(gctx, in, out, cmds)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	})

	return g.Wait()
}

func (s *Service) read(ctx context.Context, in io.Reader, out io.Writer, cmds chan<- Command) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := s.handler.Command(scanner.Text())

		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !cmd.ShouldReply {
			continue
		}

		select {
		case text, ok := <-cmd.reply:
			if !ok {
				continue
			}
			if _, err := fmt.Fprintln(out, text); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read messages: %w", err)
	}
	return nil
}

func (s *Service) work(ctx context.Context, cmds <-chan Command) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			cmd.finish(s.handle(ctx, cmd))
		}
	}
}

// handle learns cmd and returns the reply to send, if any. Storage failures
// are logged and do not stop the worker.
func (s *Service) handle(ctx context.Context, cmd Command) string {
	id := cmd.ID.String()
	log := s.logger.With(zap.String("id", id))

	ctx, span := s.tracer.Start(ctx, "chat.message",
		trace.WithAttributes(
			attribute.String("message.id", id),
			attribute.Bool("message.should_reply", cmd.ShouldReply),
		))
	var spanErr error
	defer func() { telemetry.End(span, spanErr) }()

	if err := s.bot.Learn(ctx, cmd.Content); err != nil {
		log.Warn("learn failed", zap.Error(err))
		spanErr = err
	}
	if !cmd.ShouldReply {
		return ""
	}

	if !s.limiter.Allow() {
		log.Debug("reply rate limited")
		span.AddEvent("rate_limited")
		return ""
	}

	reply, err := s.bot.Reply(ctx, cmd.Content)
	switch {
	case errors.Is(err, markov.ErrNoData):
		log.Debug("nothing to reply with")
		return ""
	case err != nil:
		log.Warn("reply failed", zap.Error(err))
		spanErr = err
		return ""
	}
	log.Debug("reply", zap.Int("length", len(reply)))
	return reply
}
