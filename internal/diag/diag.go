// Package diag renders the two diagnostic shapes the core ever emits:
// compile-time errors with a source position, and runtime errors with a
// line number. Both are also logged through commonlog so a host
// embedding the VM can pick up structured records instead of scraping
// stderr text.
package diag

import (
	"fmt"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("nx")

// CompileError formats a parse/compile failure exactly the way the
// original scanner/compiler pair does: "[L:C] error on token '<lexeme>'",
// followed by an indented message line.
func CompileError(line, column int, near, message string) string {
	text := fmt.Sprintf("[%d:%d] error on token '%s'\n\tmessage: %s\n", line, column, near, message)
	log.Error(text)
	return text
}

// RuntimeError formats a failure raised while running compiled bytecode:
// "[runtime error on line L] message".
func RuntimeError(line int, message string) string {
	text := fmt.Sprintf("[runtime error on line %d] %s\n", line, message)
	log.Error(text)
	return text
}
