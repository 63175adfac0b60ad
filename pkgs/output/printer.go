package output

import (
	"bytes"
	"fmt"
)

type Printer interface {
	Printf(format string, a ...any) (n int, err error)
}

type ConsolePrinter struct{}

func (c ConsolePrinter) Printf(format string, a ...any) (n int, err error) {
	return fmt.Printf(format, a...)
}

// BufferPrinter collects everything printed to it instead of writing to
// stdout, so pkgs/app action tests can assert on CLI output without
// capturing the real console.
type BufferPrinter struct {
	buf bytes.Buffer
}

func (b *BufferPrinter) Printf(format string, a ...any) (n int, err error) {
	return fmt.Fprintf(&b.buf, format, a...)
}

// String returns everything printed so far.
func (b *BufferPrinter) String() string {
	return b.buf.String()
}
