// Command aptserv runs annotation processors over Go packages. By default it
// runs every built-in processor, which writes META-INF/services registry files
// for types annotated with @autoserv.Provides, generates Format functions for
// @autoserv.ToString types, generates setters for @autoserv.Setter types, and
// checks @autoserv.Immutable types.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jhump/autoserv/internal/config"
	"github.com/jhump/autoserv/processor"
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args, loads the configured packages and processes them. Usage,
// diagnostics and logs are all written to out.
func run(out io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("aptserv", flag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.Usage = func() {
		fmt.Fprintf(out, `
aptserv - runs annotation processors over Go packages.

Usage:
  aptserv [options] [PACKAGE ...]

Arguments:
  PACKAGE
    Package patterns to process, as understood by the go command.
    If none are given, the config file's packages are used.

Registered processors: %s

Options:
`, strings.Join(processor.AllRegisteredProcessors(), ", "))
		flagSet.PrintDefaults()
	}

	outputDirFlag := flagSet.String("output_dir", "", "Root directory for META-INF/services registry files. Defaults to the current directory.")
	includeTestsFlag := flagSet.Bool("include_tests", false, "Whether to process test files.")
	configFlag := flagSet.String("config", "", "Path to an HCL config file. Defaults to "+config.DefaultFile+" if it exists.")
	processorsFlag := flagSet.String("processors", "", "Comma-separated names of the processors to run. Defaults to all registered processors.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	opts := optionsFlag{}
	flagSet.Var(opts, "A", "Processor option, as key or key=value. May be repeated. Recognized: verify, debug, policy.")

	if err := flagSet.Parse(expandOptionArgs(args)); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	logger := newLogger(logLevel, logFormat, out)

	settings, err := config.Find(*configFlag)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	overrides := config.Overrides{
		Packages: flagSet.Args(),
		Options:  opts,
	}
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output_dir":
			overrides.OutputDir = outputDirFlag
		case "include_tests":
			overrides.IncludeTests = includeTestsFlag
		case "processors":
			overrides.Processors = splitList(*processorsFlag)
		}
	})
	settings.Apply(overrides)

	if len(settings.Packages) == 0 {
		flagSet.Usage()
		return &ExitError{Code: 2, Message: "must supply at least one package pattern"}
	}

	var procs []processor.Processor
	if len(settings.Processors) > 0 {
		if procs, err = processor.NewProcessors(settings.Processors...); err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
	}

	logger.Info("processing packages",
		"packages", settings.Packages,
		"output_dir", settings.OutputDir,
		"processors", settings.Processors,
		"options", settings.OptionNames())

	cfg := processor.Config{
		Patterns:     settings.Packages,
		IncludeTests: settings.IncludeTests,
		OutputDir:    settings.OutputDir,
		Options:      settings.Options,
		Processors:   procs,
		Output:       out,
		Logger:       logger,
	}
	if err := cfg.Execute(); err != nil {
		var reported *processor.ErrorsReported
		if errors.As(err, &reported) {
			return &ExitError{Code: 1, Message: err.Error()}
		}
		return err
	}
	return nil
}

// newLogger creates a logger that writes to outW, without touching the
// default logger.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}

// optionsFlag collects repeated -A flags. A bare key sets the option to the
// empty string, since options are checked for presence.
type optionsFlag map[string]string

func (o optionsFlag) String() string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if v := o[k]; v != "" {
			keys[i] = k + "=" + v
		}
	}
	return strings.Join(keys, ",")
}

func (o optionsFlag) Set(s string) error {
	k, v, _ := strings.Cut(s, "=")
	if k == "" {
		return fmt.Errorf("option %q has no name", s)
	}
	o[k] = v
	return nil
}

// expandOptionArgs rewrites javac-style "-Akey=value" arguments into
// "-A" "key=value", which the flag package understands.
func expandOptionArgs(args []string) []string {
	expanded := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(expanded, args[i:]...)
		}
		if strings.HasPrefix(arg, "-A") && len(arg) > 2 && arg[2] != '=' {
			expanded = append(expanded, "-A", arg[2:])
			continue
		}
		expanded = append(expanded, arg)
	}
	return expanded
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
