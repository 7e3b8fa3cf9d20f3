package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}

var errAborted = errors.New("aborted by user")

// confirm prints question and reads a y/N answer from in. Anything other than
// y or yes, including EOF, aborts.
func confirm(in io.Reader, out io.Writer, question string) error {
	if err := writef(out, "%s\nContinue? [y/N]: ", question); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return fmt.Errorf("%w: no answer read: %w", errAborted, err)
	}
	if slices.Contains([]string{"y", "yes"}, strings.ToLower(strings.TrimSpace(answer))) {
		return nil
	}
	return errAborted
}

// deref renders an optional column for table output.
func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
