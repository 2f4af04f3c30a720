package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/aedmark/OopisOS-sub001/internal/app"
	"github.com/aedmark/OopisOS-sub001/internal/domain/executor"
	"github.com/aedmark/OopisOS-sub001/internal/domain/session"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/config"
	"github.com/aedmark/OopisOS-sub001/internal/infrastructure/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "TOML or YAML config file (overrides OOPIS_CONFIG)")
	user := flag.String("user", "", "Session user (default from config)")
	command := flag.String("c", "", "Run one command line and exit")
	script := flag.String("script", "", "Run a script file from the host and exit; remaining arguments are passed to it")
	verbose := flag.Bool("v", false, "Log to stderr")
	flag.Parse()

	if *configFile != "" {
		os.Setenv(config.FileEnvVar, *configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
		return 2
	}
	if *user == "" {
		*user = cfg.Shell.DefaultUser
	}

	logger := logging.NewNop()
	if *verbose {
		if logger, err = logging.New(logging.Config{Level: cfg.Logging.Level, Development: true}); err != nil {
			fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
			return 2
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, err := app.New(ctx, cfg, logger.Component("shell"), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
		return 1
	}
	defer func() {
		if err := runtime.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
		}
	}()

	s, err := runtime.Sessions.Open(ctx, *user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
		return 1
	}
	if err := s.LoadErr(); err != nil {
		fmt.Fprintf(os.Stderr, "oopis: warning: fresh tree was not saved: %v\n", err)
	}

	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))

	switch {
	case *command != "":
		s.Subscribe(executor.NewWriterSink(os.Stdout, stdoutTTY))
		return exitCode(oneShot(ctx, s, newScanReader(os.Stdin), func() session.Outcome {
			return s.Submit(ctx, *command)
		}))

	case *script != "":
		content, err := os.ReadFile(*script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
			return 1
		}
		s.Subscribe(executor.NewWriterSink(os.Stdout, stdoutTTY))
		return exitCode(oneShot(ctx, s, newScanReader(os.Stdin), func() session.Outcome {
			return s.SubmitSource(ctx, filepath.Base(*script), string(content), flag.Args())
		}))

	case stdinTTY && stdoutTTY:
		return exitCode(interactive(ctx, s, logger.Component("repl")))

	default:
		s.Subscribe(executor.NewWriterSink(os.Stdout, false))
		ok, err := repl(ctx, s, newScanReader(os.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
		}
		return exitCode(ok && err == nil)
	}
}

// oneShot submits a single unit of work, answering confirmations from in.
func oneShot(ctx context.Context, s *session.Session, in lineReader, submit func() session.Outcome) bool {
	out, err := answerPending(ctx, s, in, submit())
	if err != nil {
		fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
		return false
	}
	return out.Result.Success
}

// interactive runs the REPL on a raw-mode terminal.
func interactive(ctx context.Context, s *session.Session, logger *zap.Logger) bool {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oopis: %v\n", err)
		return false
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "")
	if w, h, err := term.GetSize(fd); err == nil {
		t.SetSize(w, h)
	}
	s.Subscribe(executor.NewWriterSink(t, true))

	fmt.Fprintf(t, "OopisOS shell. Session %s. Type 'help' for commands, 'exit' or Ctrl-D to leave.\n", s.ID)
	ok, err := repl(ctx, s, &termReader{t: t})
	if err != nil {
		logger.Debug("repl ended", zap.Error(err))
	}
	return ok
}

func exitCode(ok bool) int {
	if ok {
		return 0
	}
	return 1
}
