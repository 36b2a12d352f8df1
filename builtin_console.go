package basil

import (
	"fmt"
	"strings"
)

// Console builtins write through ip.Stdout and read through ip.stdin so
// embedders and tests can redirect both.

func registerConsoleBuiltins(ip *Interpreter) {
	writeArgs := func(c *CallCtx) string {
		parts := make([]string, len(c.Args))
		for i, v := range c.Args {
			parts[i] = displayString(v)
		}
		return strings.Join(parts, " ")
	}

	ip.RegisterNative("Print", 0, -1, func(c *CallCtx) (Value, error) {
		fmt.Fprintln(ip.Stdout, writeArgs(c))
		return Nothing, nil
	})
	ip.RegisterNative("Write", 0, -1, func(c *CallCtx) (Value, error) {
		fmt.Fprint(ip.Stdout, writeArgs(c))
		return Nothing, nil
	})

	readLine := func(c *CallCtx) (Value, error) {
		line, err := ip.stdin.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err != nil && line == "" {
			return StrVal(""), nil
		}
		return StrVal(line), nil
	}
	ip.RegisterNative("ReadLine", 0, 0, readLine)

	// Input prints an optional prompt, then reads one line.
	ip.RegisterNative("Input", 0, 1, func(c *CallCtx) (Value, error) {
		if len(c.Args) == 1 {
			fmt.Fprint(ip.Stdout, c.Str(0))
		}
		return readLine(c)
	})

	// The Console namespace mirrors the free functions for dotted call
	// sites like Console.WriteLine(x).
	alias := func(dotted, plain string) {
		if cell, ok := ip.Core.Lookup(plain); ok {
			ip.Core.DefineConst(dotted, cell.V)
		}
	}
	alias("Console.WriteLine", "Print")
	alias("Console.Write", "Write")
	alias("Console.ReadLine", "ReadLine")
}
