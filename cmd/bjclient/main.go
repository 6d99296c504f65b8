package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vctt94/blackjacksrv/pkg/client"
	"github.com/vctt94/blackjacksrv/pkg/logging"
	"github.com/vctt94/blackjacksrv/pkg/ui"
)

func main() {
	var (
		addr   string
		nick   string
		logDir string
		debug  bool
	)
	flag.StringVar(&addr, "addr", "127.0.0.1:10000", "Server address (host:port)")
	flag.StringVar(&nick, "nick", "", "Log in with this nickname right away")
	flag.StringVar(&logDir, "logdir", "", "Directory for rotated log files")
	flag.BoolVar(&debug, "debug", false, "Dump decoded server frames to the log")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The terminal belongs to the UI, so logging stays off unless a log
	// file was asked for.
	logCfg := logging.LogConfig{DebugLevel: "off"}
	if logDir != "" {
		logCfg.LogFile = filepath.Join(logDir, "bjclient.log")
		logCfg.DebugLevel = "info"
		if debug {
			logCfg.DebugLevel = "debug"
		}
	}
	logBackend, err := logging.NewLogBackend(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("CLNT")

	c, err := client.Dial(ctx, client.Config{
		Addr:  addr,
		Log:   log,
		Debug: debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer c.Close()
	log.Infof("Connected to %s", addr)

	if nick != "" {
		if err := c.Login(nick); err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := ui.Run(ctx, c); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
