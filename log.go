package edhoc

import "log/slog"

// logger is the package-level sink every state transition reports
// through. It defaults to a text handler that writes to a discarding
// writer and whose level is above Error, so importing this
// module never produces output unless the caller opts in via SetLogger —
// the CLI installs hermannm.dev/devlog for human-readable output.
var logger = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))

// SetLogger replaces the package-level logger used to report state
// transitions. Passing nil restores the default no-op logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
		return
	}
	logger = l
}

// logTransition reports one state transition at Debug on success or Warn
// on failure. It never logs secret material: only role, transition name,
// and, on failure, the error's Kind.
func logTransition(role, transition string, err *Error) {
	if err != nil {
		logger.Warn("edhoc transition failed",
			slog.String("role", role),
			slog.String("transition", transition),
			slog.String("error_kind", err.Kind.String()),
		)
		return
	}
	logger.Debug("edhoc transition",
		slog.String("role", role),
		slog.String("transition", transition),
	)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
