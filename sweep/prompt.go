package sweep

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm prints the prompt and reads one line from in. Only an explicit
// "y" or "yes" (any case) counts as consent; everything else, including EOF,
// is a refusal.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s (y/N): ", prompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
