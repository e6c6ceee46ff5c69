package crawl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Challenge describes a detected block waiting on a human.
type Challenge struct {
	URL    string
	Reason string
}

// Operator is consulted in manual-assist mode. Resolve returns nil once the
// human has cleared the challenge in the open session; it is the only wait
// in the crawler without a timeout.
type Operator interface {
	Resolve(ctx context.Context, challenge Challenge) error
}

var ErrSkipped = errors.New("operator skipped the challenge")

// Console is an Operator driven from a terminal.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) Resolve(ctx context.Context, challenge Challenge) error {
	fmt.Fprintf(c.out, "Blocked at %s (%s).\nClear the check in the browser, then press Enter to continue or type \"skip\": ",
		challenge.URL, challenge.Reason)

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		answers <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a := <-answers:
		if a.err != nil && a.line == "" {
			return fmt.Errorf("failed to read operator input: %w", a.err)
		}
		if strings.EqualFold(strings.TrimSpace(a.line), "skip") {
			return ErrSkipped
		}
		return nil
	}
}
