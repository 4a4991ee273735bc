package log

import (
	tracectx "github.com/go-strand/strand/pkg/trace/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// traceCore wraps a zapcore.Core to stamp every log line with the
// trace/span id active on the calling goroutine, read via
// pkg/trace/context's goroutine-local slot rather than threading a
// context.Context through every Debugw/Infow call site.
type traceCore struct {
	zapcore.Core
}

func (c *traceCore) With(fields []zapcore.Field) zapcore.Core {
	return &traceCore{Core: c.Core.With(fields)}
}

// Write adds trace_id/span_id/trace_flags fields ahead of the entry's
// own fields when the calling goroutine has a valid span installed;
// otherwise it falls through to the wrapped Core unchanged.
func (c *traceCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	ctx := tracectx.GetContext()
	if ctx == nil {
		return c.Core.Write(entry, fields)
	}

	span := trace.SpanFromContext(ctx)
	if span == nil {
		return c.Core.Write(entry, fields)
	}

	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return c.Core.Write(entry, fields)
	}

	traceID := spanCtx.TraceID()
	spanID := spanCtx.SpanID()

	// A span context stays valid after End(), so this still fires for
	// log lines emitted while unwinding a just-finished span.
	if traceID.IsValid() && spanID.IsValid() {
		traceFields := []zapcore.Field{
			zap.String("trace_id", traceID.String()),
			zap.String("span_id", spanID.String()),
		}
		if spanCtx.TraceFlags() != 0 {
			traceFields = append(traceFields, zap.Uint8("trace_flags", uint8(spanCtx.TraceFlags())))
		}
		fields = append(traceFields, fields...)
	}

	return c.Core.Write(entry, fields)
}

func (c *traceCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.Core.Check(ent, ce)
}

func (c *traceCore) Enabled(level zapcore.Level) bool {
	return c.Core.Enabled(level)
}

func (c *traceCore) Sync() error {
	return c.Core.Sync()
}

// wrapCoreWithTrace wraps core so every write through it picks up the
// calling goroutine's active span, the way log.NewLog installs it.
func wrapCoreWithTrace(core zapcore.Core) zapcore.Core {
	return &traceCore{Core: core}
}
