package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
)

const (
	engineName   = "Fianchetto"
	engineAuthor = "the fianchetto authors"
)

// UCI glues stdin/stdout to the engine. All protocol output funnels
// through print so info lines from the search goroutine and bestmove never
// interleave mid-line.
type UCI struct {
	engine *Engine
	config *ConfigStore

	in  io.Reader
	out io.Writer

	outMu    sync.Mutex
	searchWG sync.WaitGroup
}

func NewUCI(engine *Engine, config *ConfigStore, in io.Reader, out io.Writer) *UCI {
	u := &UCI{engine: engine, config: config, in: in, out: out}
	engine.SetInfoSink(func(info InfoLine) {
		u.print(info.String())
	})
	return u
}

func (u *UCI) print(line string) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintln(u.out, line)
}

// Run processes commands until quit or EOF. It owns process I/O; the
// engine never reads or writes the terminal on its own.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(u.in)
	scanner.Buffer(make([]byte, 1<<16), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "uci":
			u.handleUCI()
		case "isready":
			u.print("readyok")
		case "setoption":
			u.handleSetOption(fields[1:])
		case "ucinewgame":
			u.engine.NewGame()
		case "position":
			if err := u.handlePosition(fields[1:]); err != nil {
				log.Printf("position rejected: %v", err)
			}
		case "go":
			u.handleGo(fields[1:])
		case "stop":
			u.engine.Stop()
			u.searchWG.Wait()
		case "perft":
			u.handlePerft(fields[1:])
		case "d":
			u.print(u.engine.Position().String())
		case "quit":
			u.drainSearch()
			return
		default:
			log.Printf("unknown command %q", fields[0])
		}
	}
	u.drainSearch()
}

// drainSearch lets a bounded search finish its bestmove before exit, but
// cancels an unbounded one: the GUI that started `go infinite` is gone.
func (u *UCI) drainSearch() {
	if u.engine.SearchIsUnbounded() {
		u.engine.Stop()
	}
	u.searchWG.Wait()
}

func (u *UCI) handleUCI() {
	u.print("id name " + engineName)
	u.print("id author " + engineAuthor)
	u.print("option name Hash type spin default 64 min 1 max 32768")
	u.print("option name Threads type spin default 1 min 1 max 256")
	u.print("option name MoveOverhead type spin default 80 min 0 max 5000")
	u.print("option name MultiPV type spin default 1 min 1 max 64")
	u.print("option name SyzygyPath type string default <empty>")
	u.print("option name BookFile type string default <empty>")
	u.print("option name Style type combo default Normal var Normal var Tal var Petrosian")
	u.print("option name UseExperienceBook type check default false")
	u.print("uciok")
}

func (u *UCI) handleSetOption(args []string) {
	// setoption name <name...> [value <value...>]
	name, value := "", ""
	collecting := ""
	for _, arg := range args {
		switch arg {
		case "name":
			collecting = "name"
		case "value":
			collecting = "value"
		default:
			switch collecting {
			case "name":
				if name != "" {
					name += " "
				}
				name += arg
			case "value":
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	spin := func(min, max int) (int, bool) {
		n, err := strconv.Atoi(value)
		if err != nil || n < min || n > max {
			log.Printf("option %s: invalid value %q", name, value)
			return 0, false
		}
		return n, true
	}

	switch name {
	case "Hash":
		if n, ok := spin(1, 32768); ok {
			u.engine.ResizeHash(n)
		}
	case "Threads":
		if n, ok := spin(1, 256); ok {
			u.engine.SetThreads(n)
		}
	case "MoveOverhead":
		if n, ok := spin(0, 5000); ok {
			u.engine.SetMoveOverhead(n)
		}
	case "MultiPV":
		if n, ok := spin(1, 64); ok {
			u.engine.SetMultiPV(n)
		}
	case "SyzygyPath":
		// Opaque: handed to the external tablebase prober.
		u.engine.SetSyzygyPath(value)
	case "BookFile":
		// Opaque: handed to the external opening-book reader.
		u.engine.SetBookFile(value)
	case "Style":
		if _, ok := styleProfiles[value]; ok {
			u.engine.SetStyle(value)
		} else {
			log.Printf("option Style: unknown profile %q", value)
		}
	case "UseExperienceBook":
		u.engine.SetExperienceBook(value == "true")
	default:
		log.Printf("ignoring unsupported option %q", name)
	}
}

func (u *UCI) handlePosition(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("position: missing arguments")
	}
	fen := ""
	movesIdx := -1
	switch args[0] {
	case "startpos":
		for i, arg := range args {
			if arg == "moves" {
				movesIdx = i
				break
			}
		}
	case "fen":
		end := len(args)
		for i, arg := range args {
			if arg == "moves" {
				movesIdx = i
				end = i
				break
			}
		}
		fen = strings.Join(args[1:end], " ")
		if fen == "" {
			return fmt.Errorf("position: empty fen")
		}
	default:
		return fmt.Errorf("position: expected startpos or fen, got %q", args[0])
	}

	var moves []string
	if movesIdx >= 0 {
		moves = args[movesIdx+1:]
	}
	return u.engine.SetPosition(fen, moves)
}

func parseGoParams(args []string) GoParams {
	var params GoParams
	readInt := func(i int) int64 {
		if i+1 < len(args) {
			if n, err := strconv.ParseInt(args[i+1], 10, 64); err == nil {
				return n
			}
		}
		return 0
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			params.Depth = int(readInt(i))
		case "movetime":
			params.MoveTime = readInt(i)
		case "wtime":
			params.WTime = readInt(i)
		case "btime":
			params.BTime = readInt(i)
		case "winc":
			params.WInc = readInt(i)
		case "binc":
			params.BInc = readInt(i)
		case "movestogo":
			params.MovesToGo = int(readInt(i))
		case "nodes":
			params.Nodes = readInt(i)
		case "infinite":
			params.Infinite = true
		}
	}
	if params.Depth == 0 && params.MoveTime == 0 && params.WTime == 0 &&
		params.BTime == 0 && params.Nodes == 0 && !params.Infinite {
		// A bare `go` behaves like `go infinite` in most GUIs.
		params.Infinite = true
	}
	return params
}

func (u *UCI) handleGo(args []string) {
	if u.engine.IsSearching() {
		log.Printf("go ignored: search already running")
		return
	}
	params := parseGoParams(args)
	u.searchWG.Add(1)
	go func() {
		defer u.searchWG.Done()
		result := u.engine.Search(params)
		line := "bestmove " + result.Best.String()
		if result.Ponder != NullMove {
			line += " ponder " + result.Ponder.String()
		}
		u.print(line)
	}()
}

func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			depth = n
		}
	}
	pos := u.engine.Position()
	total := pos.Divide(depth)
	u.print(fmt.Sprintf("perft %d = %d", depth, total))
}
