package main

import "fmt"

func (c *command) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *command) warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.errOut, "Warning: "+format+"\n", args...)
}
