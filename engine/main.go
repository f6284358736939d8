package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// init wires the global tables once at program start; they are read-only
// afterwards.
func init() {
	initCastleRightsMask()
	initZobrist()
	initAttacks()
	initLMR()
}

func main() {
	serverMode := flag.Bool("server", false, "run the HTTP/WebSocket analysis server instead of the UCI loop")
	httpAddr := flag.String("addr", "", "analysis server listen address (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load .env: %v", err)
	}

	config := NewConfigStore()
	config.ApplyEnv()
	engine := NewEngine(config)

	if *serverMode {
		addr := config.Get().HTTPAddr
		if *httpAddr != "" {
			addr = *httpAddr
		}
		srv := NewServer(engine, config)
		log.Fatal(srv.ListenAndServe(addr))
	}

	// UCI protocol lines go to stdout; everything else goes to stderr so a
	// GUI never sees stray text.
	log.SetOutput(os.Stderr)
	NewUCI(engine, config, os.Stdin, os.Stdout).Run()
}
