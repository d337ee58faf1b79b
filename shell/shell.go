// Package shell is the interactive analysis front end: the same engine
// as the UCI loop behind a readline prompt, for humans rather than GUIs.
package shell

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/zugzwang-chess/zugzwang/chess"
	"github.com/zugzwang-chess/zugzwang/config"
	"github.com/zugzwang-chess/zugzwang/eval"
	"github.com/zugzwang-chess/zugzwang/uci"
)

type Shell struct {
	cfg      *config.Config
	protocol *uci.Protocol
	out      io.Writer
}

func New(cfg *config.Config, out io.Writer) *Shell {
	return &Shell{
		cfg:      cfg,
		protocol: uci.New(cfg, out),
		out:      out,
	}
}

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "position [startpos|fen <fen>] [moves ...] - set the board\n")
	io.WriteString(w, "go [depth n] [movetime ms] [infinite] ... - search\n")
	io.WriteString(w, "stop - stop an infinite search\n")
	io.WriteString(w, "perft <depth> - count leaf nodes\n")
	io.WriteString(w, "divide <depth> - per-move perft counts\n")
	io.WriteString(w, "d - print the board\n")
	io.WriteString(w, "eval - static evaluation of the position\n")
	io.WriteString(w, "setoption name <name> value <v> - set a UCI option\n")
	io.WriteString(w, "exit\n")
}

func filterInput(r rune) (rune, bool) {
	// Block Ctrl-Z suspend so the terminal stays sane.
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}

// Loop runs the interactive prompt until exit or EOF.
func (s *Shell) Loop() error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:              "\033[31mzugzwang>\033[0m ",
		HistoryFile:         "/tmp/zugzwang_readline.tmp",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintf(s.out, "bad command line: %v\n", err)
			continue
		}

		switch args[0] {
		case "exit", "bye", "quit":
			return nil
		case "help":
			usage(l.Stderr())
		case "d":
			fmt.Fprint(s.out, s.protocol.Board().Pos().String())
		case "eval":
			v, margin := eval.Evaluate(s.protocol.Board().Pos())
			fmt.Fprintf(s.out, "static eval: %d margin: %d (side to move)\n", v, margin)
		case "perft":
			s.runPerft(args[1:], false)
		case "divide":
			s.runPerft(args[1:], true)
		case "position", "go", "stop", "ponderhit", "setoption", "ucinewgame", "isready":
			s.protocol.RunLine(line)
		default:
			log.Debug().Str("line", strconv.Quote(line)).Msg("unknown-shell-command")
			fmt.Fprintf(s.out, "Unknown command: %s (try help)\n", args[0])
		}
	}
	return nil
}

func (s *Shell) runPerft(args []string, divide bool) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "usage: perft <depth>")
		return
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 1 || depth > 9 {
		fmt.Fprintln(s.out, "perft depth must be in 1..9")
		return
	}
	pos := s.protocol.Board().Pos()
	start := time.Now()
	if divide {
		counts := chess.Divide(pos, depth)
		moves := make([]string, 0, len(counts))
		for m := range counts {
			moves = append(moves, m)
		}
		sort.Strings(moves)
		var total int64
		for _, m := range moves {
			fmt.Fprintf(s.out, "%s: %d\n", m, counts[m])
			total += counts[m]
		}
		fmt.Fprintf(s.out, "total: %d\n", total)
	} else {
		n := chess.Perft(pos, depth)
		fmt.Fprintf(s.out, "perft(%d) = %d in %v\n", depth, n, time.Since(start))
	}
}
