package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Standalone bench harness: launches the engine binary and drives it over
// UCI pipes, reporting reached depth and nodes/second per test position.

var benchPositions = []struct {
	name string
	fen  string
}{
	{"startpos", ""},
	{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"},
	{"endgame-krk", "4k3/8/8/8/8/8/8/4K2R w K - 0 1"},
	{"tactics-pin", "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"},
	{"queen-ending", "6k1/5ppp/8/8/8/8/5PPP/4Q1K1 w - - 0 1"},
}

type engineProc struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
}

func startEngine(path string) (*engineProc, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &engineProc{cmd: cmd, stdin: stdin, stdout: bufio.NewScanner(stdout)}, nil
}

func (e *engineProc) send(line string) error {
	_, err := io.WriteString(e.stdin, line+"\n")
	return err
}

// waitFor reads lines until one starts with prefix, returning that line.
func (e *engineProc) waitFor(prefix string) (string, error) {
	for e.stdout.Scan() {
		line := e.stdout.Text()
		if strings.HasPrefix(line, prefix) {
			return line, nil
		}
	}
	if err := e.stdout.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("engine closed stdout waiting for %q", prefix)
}

func (e *engineProc) close() {
	_ = e.send("quit")
	_ = e.stdin.Close()
	_ = e.cmd.Wait()
}

type benchResult struct {
	name    string
	depth   int
	nodes   int64
	elapsed time.Duration
}

func runBench(enginePath string, moveTimeMs, threads int) ([]benchResult, error) {
	engine, err := startEngine(enginePath)
	if err != nil {
		return nil, fmt.Errorf("starting engine: %w", err)
	}
	defer engine.close()

	if err := engine.send("uci"); err != nil {
		return nil, err
	}
	if _, err := engine.waitFor("uciok"); err != nil {
		return nil, err
	}
	if threads > 1 {
		_ = engine.send(fmt.Sprintf("setoption name Threads value %d", threads))
	}
	_ = engine.send("isready")
	if _, err := engine.waitFor("readyok"); err != nil {
		return nil, err
	}

	results := make([]benchResult, 0, len(benchPositions))
	for _, bp := range benchPositions {
		_ = engine.send("ucinewgame")
		if bp.fen == "" {
			_ = engine.send("position startpos")
		} else {
			_ = engine.send("position fen " + bp.fen)
		}
		start := time.Now()
		_ = engine.send(fmt.Sprintf("go movetime %d", moveTimeMs))

		res := benchResult{name: bp.name}
		for engine.stdout.Scan() {
			line := engine.stdout.Text()
			if strings.HasPrefix(line, "info ") {
				fields := strings.Fields(line)
				for i := 0; i+1 < len(fields); i++ {
					switch fields[i] {
					case "depth":
						if d, err := strconv.Atoi(fields[i+1]); err == nil {
							res.depth = d
						}
					case "nodes":
						if n, err := strconv.ParseInt(fields[i+1], 10, 64); err == nil {
							res.nodes = n
						}
					}
				}
				continue
			}
			if strings.HasPrefix(line, "bestmove ") {
				break
			}
		}
		res.elapsed = time.Since(start)
		results = append(results, res)
	}
	return results, nil
}

func main() {
	enginePath := flag.String("engine", "./engine", "path to the engine binary")
	moveTime := flag.Int("movetime", 2000, "milliseconds per position")
	threads := flag.Int("threads", 1, "engine worker threads")
	flag.Parse()

	results, err := runBench(*enginePath, *moveTime, *threads)
	if err != nil {
		log.Fatalf("bench failed: %v", err)
	}

	var totalNodes int64
	var totalTime time.Duration
	fmt.Printf("%-14s %6s %12s %10s %10s\n", "position", "depth", "nodes", "time", "nps")
	for _, r := range results {
		nps := int64(0)
		if r.elapsed > 0 {
			nps = int64(float64(r.nodes) / r.elapsed.Seconds())
		}
		fmt.Printf("%-14s %6d %12d %9dms %10d\n", r.name, r.depth, r.nodes, r.elapsed.Milliseconds(), nps)
		totalNodes += r.nodes
		totalTime += r.elapsed
	}
	if totalTime > 0 {
		fmt.Printf("\ntotal: %d nodes in %dms (%d nps)\n",
			totalNodes, totalTime.Milliseconds(), int64(float64(totalNodes)/totalTime.Seconds()))
	}
}
