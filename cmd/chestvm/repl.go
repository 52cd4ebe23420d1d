package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/psilLang/chestvm/pkg/engine"
	"github.com/psilLang/chestvm/pkg/micro"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive console: type instructions, then .run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "chestvm> ",
				HistoryFile: filepath.Join(os.TempDir(), "chestvm_history.txt"),
			})
			if err != nil {
				return fmt.Errorf("start readline: %w", err)
			}
			defer rl.Close()

			s := newSession(newEngine())
			out := rl.Stdout()
			fmt.Fprintln(out, "Type instructions, .help for commands.")
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if len(line) == 0 {
						return nil
					}
					continue
				}
				if err != nil {
					if errors.Is(err, io.EOF) {
						return nil
					}
					return err
				}
				if s.handle(out, line) {
					return nil
				}
			}
		},
	}
}

// session is the console state: the source typed so far and the memory
// carried between runs.
type session struct {
	eng   *engine.Engine
	lines []string
	mem   micro.Memory
}

func newSession(e *engine.Engine) *session {
	return &session{eng: e}
}

func (s *session) source() string {
	return strings.Join(s.lines, "\n")
}

// handle processes one console line and reports whether to quit.
func (s *session) handle(w io.Writer, line string) bool {
	cmd := strings.TrimSpace(line)
	switch cmd {
	case ".quit", ".exit":
		return true
	case ".help":
		fmt.Fprint(w, `Commands:
  .run     run the buffer against an empty world
  .check   validate the buffer
  .list    print the buffer
  .mem     print non-zero memory cells
  .reset   clear the buffer and memory
  .quit    leave
`)
	case ".run":
		a := s.eng.Exec(s.source(), &s.mem, nil)
		fmt.Fprintln(w, actionLine(a))
	case ".check":
		if err := s.eng.Check(s.source()); err != nil {
			fmt.Fprintln(w, err)
		} else {
			fmt.Fprintln(w, "ok")
		}
	case ".list":
		for i, l := range s.lines {
			fmt.Fprintf(w, "%3d  %s\n", i+1, l)
		}
	case ".mem":
		printMemory(w, &s.mem)
	case ".reset":
		s.lines = nil
		s.mem = micro.Memory{}
	default:
		if strings.HasPrefix(cmd, ".") {
			fmt.Fprintf(w, "unknown command %s\n", cmd)
			break
		}
		s.lines = append(s.lines, line)
	}
	return false
}
