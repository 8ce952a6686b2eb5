package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go_lan_transfer/collab"
)

// stdioPrompts implements collab.UserPrompts over stdin/stdout: y/n for
// transfer confirmation, o/r/a for the rename/overwrite/abort conflict
// prompt, and plain stderr lines for error reporting.
type stdioPrompts struct {
	in *bufio.Reader
}

func newStdioPrompts() *stdioPrompts {
	return &stdioPrompts{in: bufio.NewReader(os.Stdin)}
}

func (p *stdioPrompts) ConfirmTransfer(fileName string, size int64) bool {
	fmt.Printf("Accept %q (%d bytes)? [y/n] ", fileName, size)
	answer := p.readLine()
	return answer == "y" || answer == "yes"
}

func (p *stdioPrompts) ResolveConflict(fileName string) collab.ConflictResolution {
	fmt.Printf("%q already exists. Overwrite, rename, or abort? [o/r/a] ", fileName)
	switch p.readLine() {
	case "o":
		return collab.Overwrite
	case "a":
		return collab.Abort
	default:
		return collab.Rename
	}
}

func (p *stdioPrompts) ReportError(message string) {
	fmt.Fprintln(os.Stderr, message)
}

func (p *stdioPrompts) readLine() string {
	line, _ := p.in.ReadString('\n')
	return strings.ToLower(strings.TrimSpace(line))
}
