// Command nx is the CLI entry point: given a path, it compiles and
// runs that file; given no arguments, it runs a line REPL.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"nx-lang/internal/compiler"
	"nx-lang/internal/value"
	"nx-lang/internal/vm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "panic:", r)
			os.Exit(-1)
		}
	}()

	if len(os.Args) >= 2 {
		runFile(os.Args[1])
		return
	}

	repl()
}

func runFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "could not read input file"))
		os.Exit(-1)
	}

	runSource(string(content))
}

// repl reads one line at a time and compiles+executes each in total
// isolation — a fresh Compiler and a fresh VM per line, so a name
// declared on one line is gone by the next.
func repl() {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		runSource(line)
	}
}

// runSource compiles and runs one chunk of source, reporting whether
// it completed without a compile or runtime error. Both the compiler
// and the VM already report their own diagnostics to stderr as they
// happen, so there is nothing left to print here.
func runSource(source string) bool {
	c := compiler.New(source)
	ch, err := c.Compile()
	if err != nil {
		return false
	}

	machine := vm.New(c.Interner())
	return machine.Interpret(ch) == value.ResultOk
}
