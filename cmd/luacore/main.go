// Package main is the main entrypoint to the luacore application
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/tanema/luacore"
	"github.com/tanema/luacore/src/chunk"
	"github.com/tanema/luacore/src/conf"
	"github.com/tanema/luacore/src/logs"
	"github.com/tanema/luacore/src/runtime"
)

var (
	listOpcodes bool
	showVersion bool
	interactive bool
	warningsOn  bool
	configPath  string
	logLevel    string
)

func init() {
	flag.BoolVar(&listOpcodes, "l", false, "list opcodes")
	flag.BoolVar(&showVersion, "v", false, "show version information")
	flag.BoolVar(&interactive, "i", false, "enter the interactive console after executing a chunk")
	flag.BoolVar(&warningsOn, "W", false, "turn warnings on")
	flag.StringVar(&configPath, "c", "", "path to a toml config file")
	flag.StringVar(&logLevel, "log", "", "log level: debug, info, warn or error")
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	cfg := conf.Default()
	if configPath != "" {
		var err error
		cfg, err = conf.Load(configPath)
		checkErr(err)
	}
	if warningsOn {
		cfg.Runtime.Warnings = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	checkErr(cfg.Validate())

	logger, err := logs.New(cfg.Log, os.Stderr)
	checkErr(err)
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	state := runtime.New(cfg)
	state.SetLogger(logger.Logger)
	state.OpenLibs()
	defer func() { _ = state.Close() }()

	args := flag.Args()
	if showVersion {
		printVersion()
	}
	if len(args) > 0 {
		runFile(ctx, state, logger.Logger, args[0])
	}
	if interactive || (len(args) == 0 && !showVersion) {
		runConsole(ctx, state)
	}
}

func printVersion() {
	fmt.Fprintf(os.Stderr, "%v\n", conf.FullVersion())
}

func printUsage() {
	printVersion()
	fmt.Fprint(os.Stderr, "\nUsage: luacore [options] [chunk.luac]\n")
	flag.PrintDefaults()
}

func checkErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runFile(ctx context.Context, state *runtime.State, logger *slog.Logger, path string) {
	fn, err := chunk.File(path)
	checkErr(err)
	if listOpcodes {
		fmt.Fprintln(os.Stderr, fn.String())
	}
	logger.Debug("loaded chunk", "path", path, "name", fn.Name)
	res, err := luacore.Run(ctx, state, fn)
	checkErr(err)
	if len(res) > 0 {
		parts := make([]string, len(res))
		for i, val := range res {
			parts[i] = val.String()
		}
		fmt.Fprintln(state.Stdout, strings.Join(parts, "\t"))
	}
}

func runConsole(ctx context.Context, state *runtime.State) {
	printVersion()
	fmt.Fprint(os.Stderr, "Type help for a list of commands.\n")
	checkErr(state.Console(ctx))
}
