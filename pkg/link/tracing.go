package link

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Ratio1/trpc_client_go/pkg/link"

// Tracing opens a client span per operation. A nil tracer uses the global
// tracer provider.
func Tracing(tracer trace.Tracer) Link {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, op *Operation) Result {
			ctx, span := tracer.Start(ctx, "trpc."+string(op.Type)+" "+op.Path,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("rpc.system", "trpc"),
					attribute.String("rpc.method", op.Path),
					attribute.String("trpc.type", string(op.Type)),
					attribute.Int64("trpc.id", op.ID),
				),
			)
			defer span.End()

			res := next(ctx, op)
			if res.Err != nil {
				span.RecordError(res.Err)
				span.SetStatus(codes.Error, res.Err.Error())
			}
			return res
		}
	}
}
