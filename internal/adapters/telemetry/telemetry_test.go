package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/cloudbuilder/internal/adapters/telemetry"
	"go.trai.ch/cloudbuilder/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestOTelTracer_Attributes(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := telemetry.NewOTelTracer("test")
	_, span := tracer.Start(context.Background(), "build")
	span.SetAttribute("job.id", "cb123")
	span.SetAttribute("lines", 3)
	span.SetAttribute("seconds", 1.5)
	span.SetAttribute("persistent", true)
	span.SetAttribute("targets", []string{"modduo", "moddwarf"})
	span.SetAttribute("other", struct{ A int }{A: 1})
	span.RecordError(errors.New("boom"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "build", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)

	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("job.id", "cb123"))
	assert.Contains(t, attrs, attribute.Int("lines", 3))
	assert.Contains(t, attrs, attribute.Float64("seconds", 1.5))
	assert.Contains(t, attrs, attribute.Bool("persistent", true))
	assert.Contains(t, attrs, attribute.StringSlice("targets", []string{"modduo", "moddwarf"}))
	assert.Contains(t, attrs, attribute.String("other", "{1}"))
}

func TestBridge_OnEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(log)))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer("test")

	log.EXPECT().Info(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "chain.target finished in")
		assert.Contains(t, msg, "target=modduo")
	})
	_, span := tracer.Start(context.Background(), "chain.target")
	span.SetAttributes(attribute.String("target", "modduo"))
	span.End()

	log.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "build finished in")
		assert.Contains(t, msg, ": exit code 2")
	})
	_, span = tracer.Start(context.Background(), "build")
	span.SetStatus(codes.Error, "exit code 2")
	span.End()
}

func TestBridge_NilLogger(_ *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(nil)))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	span.End()
}

func TestNoOpTracer(t *testing.T) {
	ctx := context.Background()
	got, span := telemetry.NewNoOpTracer().Start(ctx, "anything")
	assert.Equal(t, ctx, got)
	span.SetAttribute("k", "v")
	span.RecordError(errors.New("ignored"))
	span.End()
}
