package launcher

import (
	"bufio"
	"context"
	"errors"
	"io"
)

// LineGate is a Gate released by one line of input. The content of the line
// is discarded. End of input also releases the gate.
type LineGate struct {
	r io.Reader
}

// NewLineGate returns a gate reading from r, usually os.Stdin.
func NewLineGate(r io.Reader) *LineGate {
	return &LineGate{r: r}
}

// Wait blocks until a line is read or ctx is done. There is no timeout.
func (g *LineGate) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(g.r).ReadString('\n')
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
