package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vctt94/blackjacksrv/pkg/logging"
	"github.com/vctt94/blackjacksrv/pkg/server"
)

func main() {
	var (
		configPath string
		ip         string
		port       int
		rooms      int
		maxPlayers int
		logDir     string
		debugLevel string
		dbFile     string
		seed       int64
	)
	flag.StringVar(&configPath, "c", "", "Path to YAML config file")
	flag.StringVar(&ip, "i", "", "IP address to listen on")
	flag.IntVar(&port, "p", 0, "Port to listen on")
	flag.IntVar(&rooms, "r", 0, "Number of rooms")
	flag.IntVar(&maxPlayers, "m", 0, "Maximum concurrent players")
	flag.StringVar(&logDir, "logdir", "", "Directory for rotated log files (empty logs to stdout only)")
	flag.StringVar(&debugLevel, "debuglevel", "", "Logging level: trace, debug, info, warn, error")
	flag.StringVar(&dbFile, "db", "", "Path to SQLite round ledger (empty disables recording)")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for decks (0 = random)")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.IP = ip
		case "p":
			cfg.Port = port
		case "r":
			cfg.Rooms = rooms
		case "m":
			cfg.MaxPlayers = maxPlayers
		case "logdir":
			cfg.LogDir = logDir
		case "debuglevel":
			cfg.DebugLevel = debugLevel
		case "db":
			cfg.DBFile = dbFile
		case "seed":
			cfg.Seed = seed
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	var logFile string
	if cfg.LogDir != "" {
		logFile = filepath.Join(cfg.LogDir, "blackjacksrv.log")
	}
	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    logFile,
		DebugLevel: cfg.DebugLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("MAIN")

	var db server.Database
	if cfg.DBFile != "" {
		db, err = server.NewDatabase(cfg.DBFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to init db: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, db, logBackend)
	if err := srv.Run(ctx); err != nil {
		log.Errorf("Server exited with error: %v", err)
		os.Exit(1)
	}
}
