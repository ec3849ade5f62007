package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// keyInterrupt is what a raw-mode terminal delivers for Ctrl-C.
const keyInterrupt = 0x03

// ErrInputClosed means the key source ended before an answer was given.
var ErrInputClosed = errors.New("input closed")

// KeyReader returns single key presses.
type KeyReader interface {
	ReadKey() (byte, error)
}

// TerminalKeys reads keys from a terminal in raw mode, so a key counts as
// soon as it is pressed and is not echoed.
type TerminalKeys struct {
	in *os.File
}

// NewKeyReader reads keys from in: raw single keys when in is a terminal,
// otherwise bytes of redirected input.
func NewKeyReader(in *os.File) KeyReader {
	if term.IsTerminal(int(in.Fd())) {
		return &TerminalKeys{in: in}
	}
	return NewReaderKeys(in)
}

// ReadKey switches the terminal to raw mode for one key press.
func (t *TerminalKeys) ReadKey() (byte, error) {
	fd := int(t.in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return 0, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	var buf [1]byte
	if _, err := t.in.Read(buf[:]); err != nil {
		return 0, readError(err)
	}
	return buf[0], nil
}

// ReaderKeys reads keys byte by byte from any reader.
type ReaderKeys struct {
	r *bufio.Reader
}

// NewReaderKeys returns a KeyReader over r.
func NewReaderKeys(r io.Reader) *ReaderKeys {
	return &ReaderKeys{r: bufio.NewReader(r)}
}

func (k *ReaderKeys) ReadKey() (byte, error) {
	b, err := k.r.ReadByte()
	if err != nil {
		return 0, readError(err)
	}
	return b, nil
}

func readError(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrInputClosed
	}
	return err
}
