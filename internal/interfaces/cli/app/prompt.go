package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ReadPassword prompts without echo on a terminal and reads one line from
// stdin otherwise.
func ReadPassword(cmd *cobra.Command, prompt string) (string, error) {
	out, err := ReadPasswords(cmd, prompt)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// ReadPasswords is ReadPassword for several prompts in a row. Piped input
// gives one line per prompt.
func ReadPasswords(cmd *cobra.Command, prompts ...string) ([]string, error) {
	out := make([]string, 0, len(prompts))
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		for _, prompt := range prompts {
			fmt.Fprint(cmd.ErrOrStderr(), prompt)
			raw, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return nil, fmt.Errorf("failed to read password: %w", err)
			}
			out = append(out, string(raw))
		}
		return out, nil
	}

	r := bufio.NewReader(cmd.InOrStdin())
	for range prompts {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		out = append(out, strings.TrimRight(line, "\r\n"))
	}
	return out, nil
}
