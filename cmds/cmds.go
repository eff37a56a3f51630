// Package cmds has the command abstractions the CLI builds on and helpers
// shared by the command implementations.
package cmds

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lainio/err2/try"
)

var ErrInvalid = errors.New("invalid command, check arguments")

// Result is what a command execution returns for programmatic callers.
type Result interface {
	JSON() ([]byte, error)
}

// Command is a validated, executable CLI operation.
type Command interface {
	Validate() error
	Exec(w io.Writer) (r Result, err error)
}

// ValidateSeed checks optional seed material: empty or exactly 32
// characters.
func ValidateSeed(seed string) error {
	if seed != "" && len(seed) != 32 {
		return errors.New("seed must be empty or length of 32")
	}
	return nil
}

// ParseLoggingArgs feeds glog style startup arguments to the flag package.
func ParseLoggingArgs(s string) {
	args := make([]string, 1, 12)
	args[0] = os.Args[0]
	args = append(args, strings.Split(s, " ")...)
	orgArgs := os.Args
	os.Args = args
	flag.Parse()
	os.Args = orgArgs
}

// Fprintln is fmt.Fprintln but it allows writer to be nil. Note! it throws
// an error.
func Fprintln(w io.Writer, a ...interface{}) {
	if w != nil {
		try.To1(fmt.Fprintln(w, a...))
	}
}

// Fprintf is fmt.Fprintf but it allows writer to be nil. Note! it throws an
// error.
func Fprintf(w io.Writer, format string, a ...interface{}) {
	if w != nil {
		try.To1(fmt.Fprintf(w, format, a...))
	}
}
