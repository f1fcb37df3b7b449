package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"rcsbsync/internal/query"
)

// exitStatusError carries a process exit code through Cobra's error
// path. main translates it after Execute returns.
type exitStatusError struct {
	code    int
	message string
}

func (e *exitStatusError) Error() string { return e.message }

func exitStatus(code int, message string) error {
	return &exitStatusError{code: code, message: message}
}

// selectQueries filters loaded queries down to the requested names,
// keeping the on-disk order. An empty selection keeps everything.
func selectQueries(all []query.Query, names []string) ([]query.Query, error) {
	if len(names) == 0 {
		return all, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed != "" {
			wanted[trimmed] = false
		}
	}
	selected := make([]query.Query, 0, len(wanted))
	for _, q := range all {
		if _, ok := wanted[q.Name]; ok {
			wanted[q.Name] = true
			selected = append(selected, q)
		}
	}
	missing := make([]string, 0)
	for name, found := range wanted {
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown query %s; run `rcsbsync query list` to see what the project defines", strings.Join(missing, ", "))
	}
	return selected, nil
}

// isTerminal reports whether the reader or writer is attached to an
// interactive terminal.
func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptApproval asks the user to approve a plan and reads a y/n
// answer. Anything but an explicit yes declines.
func promptApproval(in *bufio.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Apply these changes? [y/N]: ")
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// formatIDs shows up to limit identifiers with a "+N more" tail for
// long lists.
func formatIDs(ids []string, limit int) string {
	if len(ids) == 0 {
		return ""
	}
	if limit <= 0 || len(ids) <= limit {
		return strings.Join(ids, " ")
	}
	head := strings.Join(ids[:limit], " ")
	return fmt.Sprintf("%s +%d more", head, len(ids)-limit)
}
