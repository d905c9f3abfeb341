package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/objbridge/classes"
	"github.com/wippyai/objbridge/dispatch"
	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/internal/config"
	"github.com/wippyai/objbridge/internal/script"
	"github.com/wippyai/objbridge/value"
	"github.com/wippyai/objbridge/wasmbridge"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML config file")
		scriptFile  = flag.String("script", "", "Path to YAML call script")
		wasmFile    = flag.String("wasm", "", "Path to guest wasm module")
		funcName    = flag.String("func", "", "Guest function to call (default _start)")
		cliArgs     = flag.String("argv", "", "Guest CLI arguments (comma-separated)")
		logLevel    = flag.String("log-level", "", "Override the configured log level")
		list        = flag.Bool("list", false, "List classes and actions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *scriptFile == "" && *wasmFile == "" && !*list && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: objbridge -script <calls.yaml> [-config file]")
		fmt.Fprintln(os.Stderr, "       objbridge -wasm <guest.wasm> [-func name] [-argv a,b]")
		fmt.Fprintln(os.Stderr, "       objbridge -list")
		fmt.Fprintln(os.Stderr, "       objbridge -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := run(cfg, *scriptFile, *wasmFile, *funcName, *cliArgs, *list, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, scriptFile, wasmFile, funcName, argvStr string, listOnly, interactive bool) error {
	ctx := context.Background()

	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	if interactive {
		// the TUI owns the terminal
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()
	handle.SetLogger(logger.Named("handle"))
	dispatch.SetLogger(logger.Named("dispatch"))

	reg := handle.NewRegistry(handle.WithMaxEntries(cfg.Registry.MaxEntries))
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("registry close", zap.Error(err))
		}
	}()

	m, err := classes.Module(dispatch.WithRegistry(reg))
	if err != nil {
		return fmt.Errorf("build module: %w", err)
	}

	switch {
	case listOnly:
		listClasses(os.Stdout, m)
		return nil

	case interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(m)

	case scriptFile != "":
		return runScript(ctx, os.Stdout, m, logger, scriptFile)
	}

	return runWasm(ctx, cfg, m, logger, wasmFile, funcName, argvStr)
}

func listClasses(w io.Writer, m *dispatch.Module) {
	for _, name := range m.Names() {
		fn, _ := m.Lookup(name)
		fmt.Fprintf(w, "%s\n", name)
		for _, a := range fn.Actions() {
			fmt.Fprintf(w, "  %s\n", formatSpec(a))
		}
	}
}

func formatSpec(a dispatch.ActionSpec) string {
	var b strings.Builder
	if a.Static {
		b.WriteString("static ")
	}
	b.WriteString(a.Name)
	b.WriteString("(" + strings.Join(a.Args, ", ") + ")")
	if a.NOut > 0 {
		fmt.Fprintf(&b, " -> %d", a.NOut)
	}
	if a.Help != "" {
		b.WriteString("  " + a.Help)
	}
	return b.String()
}

func runScript(ctx context.Context, w io.Writer, m *dispatch.Module, logger *zap.Logger, path string) error {
	s, err := script.Load(path)
	if err != nil {
		return err
	}

	runner := script.NewRunner(m, logger)
	results, runErr := runner.Run(ctx, s)
	printResults(w, results)

	if err := runner.Clear(); err != nil {
		logger.Warn("clear workspace", zap.Error(err))
	}
	return runErr
}

func printResults(w io.Writer, results []script.Result) {
	for _, r := range results {
		target := r.Step.Class
		if r.Step.Instance != "" {
			target = r.Step.Instance
		}
		action := "new"
		if len(r.Step.Args) > 0 {
			if s, ok := r.Step.Args[0].(string); ok {
				action = s
			}
		}

		fmt.Fprintf(w, "[%d] %s.%s", r.Index+1, target, action)
		if r.Error != nil {
			fmt.Fprintf(w, " error %s: %s\n", r.Error.ID, r.Error.Message)
			continue
		}
		if len(r.Outputs) == 0 {
			fmt.Fprintln(w)
			continue
		}
		parts := make([]string, len(r.Outputs))
		for i, c := range r.Outputs {
			parts[i] = value.Format(c)
		}
		fmt.Fprintf(w, " = %s\n", strings.Join(parts, ", "))
	}
}

func runWasm(ctx context.Context, cfg config.Config, m *dispatch.Module, logger *zap.Logger, wasmFile, funcName, argvStr string) error {
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	b := wasmbridge.New(m, logger,
		wasmbridge.WithModuleName(cfg.Wasm.ModuleName),
		wasmbridge.WithMaxRequestSize(cfg.Wasm.MaxRequestSize),
		wasmbridge.WithMaxResponseSize(cfg.Wasm.MaxResponseSize),
	)

	rcfg := &wasmbridge.RunnerConfig{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Args:             []string{wasmFile},
		MemoryLimitPages: cfg.Wasm.MemoryLimitPages,
	}
	if argvStr != "" {
		rcfg.Args = append(rcfg.Args, strings.Split(argvStr, ",")...)
	}

	runner, err := wasmbridge.NewRunner(ctx, b, rcfg)
	if err != nil {
		return err
	}
	defer runner.Close(ctx)

	results, err := runner.Run(ctx, data, funcName)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		fmt.Printf("Result: %v\n", results)
	}
	return nil
}
