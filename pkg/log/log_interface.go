package log

// ILogger is the subset of *zap.SugaredLogger's API that collaborators
// outside this package depend on (pkg/retry's WithLogger option, in
// particular), so a test can inject a fake sink without linking zap.
type ILogger interface {
	Info(args ...any)
	Infow(msg string, keysAndValues ...any)

	Debug(args ...any)
	Debugw(msg string, keysAndValues ...any)

	Warn(args ...any)
	Warnw(msg string, keysAndValues ...any)

	Error(args ...any)
	Errorw(msg string, keysAndValues ...any)
}
