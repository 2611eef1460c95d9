package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"pkt.systems/pslog"
)

const (
	exitOK    = 0
	exitError = 1
	exitFalse = 2
)

func main() {
	os.Exit(submain(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func submain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	baseLogger := pslog.LoggerFromEnv(ctx,
		pslog.WithEnvPrefix("CONSULKV_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(stderr),
	).With("app", "consulkv")

	a := newApp(baseLogger, stdout)
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if werr := a.writeMetrics(); werr != nil {
		fmt.Fprintf(stderr, "write metrics: %s\n", werr)
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNotOK):
		return exitFalse
	default:
		fmt.Fprintf(stderr, "%s\n", err)
		return exitError
	}
}
