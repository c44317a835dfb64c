package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gosuda/mlrdsl"
	mruntime "github.com/gosuda/mlrdsl/runtime"
)

func writerOptions(app appConfig) mruntime.WriterOptions {
	wopts := app.cfg.WriterOptions()
	wopts.JSONStack = app.stack
	return wopts
}

func interpOptions(app appConfig, stdout, stderr io.Writer, logger *slog.Logger) mruntime.Options {
	return mruntime.Options{
		Infer:          app.cfg.InferMode(),
		FlattenSep:     app.cfg.FlattenSep,
		Stdout:         stdout,
		Stderr:         stderr,
		OutputFormat:   app.cfg.OutputFormat,
		Writer:         writerOptions(app),
		SuppressRecord: app.quiet,
		FilterMode:     app.filter,
		Logger:         logger,
	}
}

// execute compiles the program and streams every input through it.
func execute(app appConfig, stdout, stderr io.Writer, logger *slog.Logger) error {
	interp, err := mlrdsl.Compile(app.source, interpOptions(app, stdout, stderr, logger))
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	inputs, err := openInputs(app.cfg.InputFormat, app.inputs, app.cfg.ReaderOptions())
	if err != nil {
		return err
	}
	defer closeInputs(inputs)

	w, err := mruntime.NewRecordWriter(app.cfg.OutputFormat, stdout, writerOptions(app))
	if err != nil {
		return err
	}
	runErr := interp.Run(runInputs(inputs), w)
	if runErr != nil {
		w.Flush()
	}
	if err := interp.Close(); err != nil && runErr == nil {
		runErr = err
	}
	logger.Debug("run finished", "inputs", len(inputs), "error", runErr)
	return runErr
}

func runPlain(app appConfig, logger *slog.Logger) error {
	return execute(app, os.Stdout, os.Stderr, logger)
}
