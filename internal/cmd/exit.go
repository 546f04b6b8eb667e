package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// Replaced in tests.
var (
	osExit           = os.Exit
	stderr io.Writer = os.Stderr
)

// ExitWithCode logs msg with the foundry exit code metadata and exits.
// logger may be nil for failures before logging is set up.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		osExit(int(exitCode))
		return
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	fields = append(fields, envelopeFields(err)...)
	logger.Error(msg, fields...)

	osExit(info.Code)
}

// ExitWithCodeStderr writes msg and the exit code description to stderr
// and exits.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	code := int(exitCode)
	describeExit(stderr, msg, err)
	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		code = info.Code
		fmt.Fprintf(stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	} else {
		fmt.Fprintf(stderr, "Exit Code: %d\n", code)
	}
	osExit(code)
}

func describeExit(w io.Writer, msg string, err error) {
	var envelope *gferrors.ErrorEnvelope
	switch {
	case err == nil:
		fmt.Fprintf(w, "FATAL: %s\n", msg)
	case errors.As(err, &envelope):
		fmt.Fprintf(w, "FATAL: %s [%s]: %s (correlation: %s)\n",
			msg, envelope.Code, envelope.Message, envelope.CorrelationID)
		if original, ok := envelope.Original.(error); ok && original != nil {
			fmt.Fprintf(w, "Underlying error: %v\n", original)
		}
	default:
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	}
}

func envelopeFields(err error) []zap.Field {
	var envelope *gferrors.ErrorEnvelope
	if !errors.As(err, &envelope) {
		return []zap.Field{zap.Error(err)}
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.String("error_message", envelope.Message),
		zap.String("correlation_id", envelope.CorrelationID),
	}
	if envelope.Context != nil {
		fields = append(fields, zap.Any("error_context", envelope.Context))
	}
	if original, ok := envelope.Original.(error); ok && original != nil {
		fields = append(fields, zap.Error(original))
	}
	return fields
}
