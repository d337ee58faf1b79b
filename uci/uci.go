// Package uci implements the text protocol front end. Protocol output
// goes to Out; logging stays on the zerolog side so GUIs never see it.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zugzwang-chess/zugzwang/book"
	"github.com/zugzwang-chess/zugzwang/chess"
	"github.com/zugzwang-chess/zugzwang/config"
	"github.com/zugzwang-chess/zugzwang/search"
)

const (
	engineName    = "zugzwang"
	engineAuthors = "the zugzwang authors"
)

type Protocol struct {
	cfg    *config.Config
	engine *search.Engine
	board  *chess.Board
	out    io.Writer

	searchWG sync.WaitGroup
	quit     atomic.Bool
}

func New(cfg *config.Config, out io.Writer) *Protocol {
	e := search.NewEngine(cfg.GetInt("hash"), cfg.GetInt("threads"))
	e.Out = out
	p := &Protocol{
		cfg:    cfg,
		engine: e,
		board:  chess.NewBoardStartPos(),
		out:    out,
	}
	p.applyConfig()
	return p
}

// Engine exposes the underlying engine, mainly for the analysis shell.
func (p *Protocol) Engine() *search.Engine { return p.engine }

// Board returns the position the next "go" will search.
func (p *Protocol) Board() *chess.Board { return p.board }

// RunLine feeds a single protocol command, for front ends that own their
// own input loop.
func (p *Protocol) RunLine(line string) { p.handle(strings.TrimSpace(line)) }

func (p *Protocol) applyConfig() {
	e := p.engine
	e.MultiPV = p.cfg.GetInt("multipv")
	e.SkillLevel = p.cfg.GetInt("skill-level")
	e.Chess960 = p.cfg.GetBool("uci-chess960")
	e.OwnBook = p.cfg.GetBool("own-book")
	e.BestBookMove = p.cfg.GetBool("best-book-move")
	e.UseSearchLog = p.cfg.GetBool("use-search-log")
	e.SearchLogFilename = p.cfg.GetString("search-log-filename")
	e.FakeSplit = p.cfg.GetBool("fake-split")
	e.MinSplitDepth = p.cfg.GetInt("min-split-depth") * 2
	p.board.SetChess960(e.Chess960)
}

// Run processes commands until quit or EOF. EOF counts as quit so a dead
// GUI does not leave the engine running.
func (p *Protocol) Run(in io.Reader) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 1<<16), 1<<20)
	for !p.quit.Load() && sc.Scan() {
		p.handle(strings.TrimSpace(sc.Text()))
	}
	p.engine.Quit()
	p.searchWG.Wait()
}

func (p *Protocol) handle(line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "uci":
		p.cmdUCI()
	case "isready":
		fmt.Fprintln(p.out, "readyok")
	case "ucinewgame":
		p.syncSearch()
		p.engine.TT.Clear()
		p.board = chess.NewBoardStartPos()
		p.board.SetChess960(p.engine.Chess960)
	case "setoption":
		p.cmdSetOption(rest)
	case "position":
		p.syncSearch()
		p.cmdPosition(rest)
	case "go":
		p.cmdGo(rest)
	case "stop":
		p.engine.Stop()
	case "ponderhit":
		p.engine.PonderHit()
	case "perft":
		p.syncSearch()
		p.cmdPerft(rest)
	case "d":
		fmt.Fprint(p.out, p.board.Pos().String())
	case "quit":
		p.quit.Store(true)
	default:
		fmt.Fprintf(p.out, "Unknown command: %s\n", line)
	}
}

// syncSearch waits for a running search to finish before state changes.
func (p *Protocol) syncSearch() {
	p.searchWG.Wait()
}

func (p *Protocol) cmdUCI() {
	fmt.Fprintf(p.out, "id name %s\nid author %s\n", engineName, engineAuthors)
	fmt.Fprintf(p.out, "option name Hash type spin default %d min 1 max 8192\n", p.cfg.GetInt("hash"))
	fmt.Fprintln(p.out, "option name Clear Hash type button")
	fmt.Fprintf(p.out, "option name Threads type spin default %d min 1 max %d\n", p.cfg.GetInt("threads"), search.MaxThreads)
	fmt.Fprintf(p.out, "option name MultiPV type spin default %d min 1 max 500\n", p.cfg.GetInt("multipv"))
	fmt.Fprintf(p.out, "option name Skill Level type spin default %d min 0 max 20\n", p.cfg.GetInt("skill-level"))
	fmt.Fprintf(p.out, "option name Min Split Depth type spin default %d min 4 max 7\n", p.cfg.GetInt("min-split-depth"))
	fmt.Fprintf(p.out, "option name UCI_Chess960 type check default %v\n", p.cfg.GetBool("uci-chess960"))
	fmt.Fprintf(p.out, "option name OwnBook type check default %v\n", p.cfg.GetBool("own-book"))
	fmt.Fprintf(p.out, "option name Book File type string default %s\n", p.cfg.GetString("book-file"))
	fmt.Fprintf(p.out, "option name Best Book Move type check default %v\n", p.cfg.GetBool("best-book-move"))
	fmt.Fprintf(p.out, "option name Use Search Log type check default %v\n", p.cfg.GetBool("use-search-log"))
	fmt.Fprintf(p.out, "option name Search Log Filename type string default %s\n", p.cfg.GetString("search-log-filename"))
	fmt.Fprintln(p.out, "option name Ponder type check default true")
	fmt.Fprintln(p.out, "uciok")
}

// knownOptions maps UCI option names (lower-cased) to config keys.
var knownOptions = map[string]string{
	"hash":                "hash",
	"clear hash":          "clear-hash",
	"threads":             "threads",
	"multipv":             "multipv",
	"skill level":         "skill-level",
	"min split depth":     "min-split-depth",
	"uci_chess960":        "uci-chess960",
	"ownbook":             "own-book",
	"book file":           "book-file",
	"best book move":      "best-book-move",
	"use search log":      "use-search-log",
	"search log filename": "search-log-filename",
	"ponder":              "ponder",
	"fake split":          "fake-split",
}

func (p *Protocol) cmdSetOption(args []string) {
	var nameParts, valueParts []string
	cur := &nameParts
	for _, tok := range args {
		switch tok {
		case "name":
			cur = &nameParts
		case "value":
			cur = &valueParts
		default:
			*cur = append(*cur, tok)
		}
	}
	name := strings.Join(nameParts, " ")
	value := strings.Join(valueParts, " ")

	key, ok := knownOptions[strings.ToLower(name)]
	if !ok {
		fmt.Fprintf(p.out, "No such option: %s\n", name)
		return
	}
	if value == "" {
		// UCI buttons carry no value.
		value = "true"
	}

	p.syncSearch()
	switch key {
	case "clear-hash":
		p.engine.TT.Clear()
		return
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil {
			p.cfg.Set(key, mb)
			p.engine.TT.Resize(mb)
		}
		return
	case "threads":
		if n, err := strconv.Atoi(value); err == nil {
			p.cfg.Set(key, n)
			p.engine.SetThreads(n)
		}
		return
	case "book-file":
		p.cfg.Set(key, value)
		p.engine.Book = nil
		return
	case "ponder":
		// Pondering is driven by "go ponder"; the option is accepted for
		// GUI compatibility.
		return
	}
	p.cfg.Set(key, value)
	p.applyConfig()
}

func (p *Protocol) cmdPosition(args []string) {
	if len(args) == 0 {
		return
	}
	var fen string
	i := 0
	switch args[0] {
	case "startpos":
		fen = chess.StartFEN
		i = 1
	case "fen":
		i = 1
		var parts []string
		for ; i < len(args) && args[i] != "moves"; i++ {
			parts = append(parts, args[i])
		}
		fen = strings.Join(parts, " ")
	default:
		fmt.Fprintf(p.out, "Unknown command: position %s\n", strings.Join(args, " "))
		return
	}

	b, err := chess.NewBoard(fen)
	if err != nil {
		log.Error().Err(err).Msg("bad-position-command")
		fmt.Fprintf(p.out, "Unknown command: position %s\n", strings.Join(args, " "))
		return
	}
	b.SetChess960(p.engine.Chess960)

	if i < len(args) && args[i] == "moves" {
		for _, ms := range args[i+1:] {
			m := b.Pos().MoveFromUCI(ms)
			if m == chess.MoveNone {
				log.Error().Str("move", ms).Msg("illegal-setup-move")
				break
			}
			if err := b.PlayRootMove(m); err != nil {
				log.Error().Err(err).Msg("illegal-setup-move")
				break
			}
		}
	}
	p.board = b
}

func (p *Protocol) cmdGo(args []string) {
	p.syncSearch()

	var limits search.Limits
	var searchMoves []chess.Move
	wtime, btime, winc, binc := 0, 0, 0, 0

	for i := 0; i < len(args); i++ {
		tok := args[i]
		next := func() int {
			if i+1 < len(args) {
				i++
				n, _ := strconv.Atoi(args[i])
				return n
			}
			return 0
		}
		switch tok {
		case "infinite":
			limits.Infinite = true
		case "ponder":
			limits.Ponder = true
		case "wtime":
			wtime = next()
		case "btime":
			btime = next()
		case "winc":
			winc = next()
		case "binc":
			binc = next()
		case "movestogo":
			limits.MovesToGo = next()
		case "depth":
			limits.MaxDepth = next()
		case "nodes":
			limits.MaxNodes = int64(next())
		case "movetime":
			limits.MaxTime = next()
		case "searchmoves":
			for i+1 < len(args) {
				m := p.board.Pos().MoveFromUCI(args[i+1])
				if m == chess.MoveNone {
					break
				}
				searchMoves = append(searchMoves, m)
				i++
			}
		}
	}

	if p.board.Pos().SideToMove() == chess.White {
		limits.Time, limits.Increment = wtime, winc
	} else {
		limits.Time, limits.Increment = btime, binc
	}

	if p.engine.OwnBook && p.engine.Book == nil {
		bk, err := book.Open(p.cfg.GetString("book-file"))
		if err != nil {
			log.Warn().Err(err).Msg("book-unavailable")
		}
		p.engine.Book = bk
	}

	p.searchWG.Add(1)
	go func() {
		defer p.searchWG.Done()
		if !p.engine.Think(p.board, limits, searchMoves) {
			p.quit.Store(true)
		}
	}()
}

func (p *Protocol) cmdPerft(args []string) {
	if len(args) == 0 {
		return
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 1 {
		return
	}
	start := time.Now()
	n := chess.Perft(p.board.Pos(), depth)
	dt := time.Since(start)
	nps := int64(0)
	if dt > 0 {
		nps = int64(float64(n) / dt.Seconds())
	}
	fmt.Fprintf(p.out, "\nNodes %d\nTime (ms) %d\nNodes/second %d\n", n, dt.Milliseconds(), nps)
}
