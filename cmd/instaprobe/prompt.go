package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// prompt asks for a username on stdin. It reports false on EOF, read errors
// or when ctx is canceled (interrupt).
func prompt(ctx context.Context, stdin io.Reader, stdout io.Writer) (string, bool) {
	fmt.Fprint(stdout, "Instagram username (handle, @handle or profile URL): ") //nolint:errcheck // best effort

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", false
	case r := <-ch:
		line := strings.TrimSpace(r.line)
		if r.err != nil && line == "" {
			return "", false
		}
		return line, true
	}
}
