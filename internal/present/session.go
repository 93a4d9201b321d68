package present

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Answers looks up the answer for a prompt.
type Answers interface {
	Answer(prompt string) (string, bool)
}

// Session shows each prompt, waits for a line of input, shows the answer
// and waits again.
type Session struct {
	answers Answers
	names   *Cycler
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

// NewSession creates a session over names, reading acknowledgments from in
// and writing to out.
func NewSession(answers Answers, names *Cycler, in io.Reader, out io.Writer, logger *slog.Logger) *Session {
	return &Session{answers: answers, names: names, in: in, out: out, logger: logger}
}

// Run drives the session until the names run out, the input reaches EOF or
// ctx is canceled. Only cancellation is reported as an error. A read
// already blocked on the input is abandoned, not interrupted.
func (s *Session) Run(ctx context.Context) error {
	defer s.names.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := s.readLines(ctx)

	shown := 0
	for {
		name, ok := s.names.Next()
		if !ok {
			break
		}
		answer, ok := s.answers.Answer(name)
		if !ok {
			continue
		}
		fmt.Fprint(s.out, "\n\n\n\n"+name)
		if err := wait(ctx, lines); err != nil {
			return s.finish(shown, err)
		}
		fmt.Fprintf(s.out, "%s\n%s", strings.Repeat("-", utf8.RuneCountInString(name)), answer)
		if err := wait(ctx, lines); err != nil {
			return s.finish(shown, err)
		}
		shown++
	}
	return s.finish(shown, nil)
}

func (s *Session) finish(shown int, err error) error {
	s.logger.Debug("present: session ended", slog.Int("shown", shown))
	if err == io.EOF {
		return nil
	}
	return err
}

func wait(ctx context.Context, lines <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-lines:
		if !ok {
			return io.EOF
		}
		return nil
	}
}

func (s *Session) readLines(ctx context.Context) <-chan struct{} {
	lines := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			s.logger.Warn("present: read input", slog.String("error", err.Error()))
		}
	}()
	return lines
}
