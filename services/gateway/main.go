// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/northshore-ai/breakwater/pkg/logging"
	"github.com/northshore-ai/breakwater/services/agent"
	"github.com/northshore-ai/breakwater/services/cache"
	"github.com/northshore-ai/breakwater/services/gateway/observability"
	"github.com/northshore-ai/breakwater/services/gateway/routes"
	"github.com/northshore-ai/breakwater/services/guard"
	"github.com/northshore-ai/breakwater/services/history"
	"github.com/northshore-ai/breakwater/services/llm"
	"github.com/northshore-ai/breakwater/services/retrieval"
	"github.com/northshore-ai/breakwater/services/storage"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "breakwater-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("gateway-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newLLMClient selects the generation backend from LLM_BACKEND_TYPE.
func newLLMClient() (llm.LLMClient, error) {
	switch backend := os.Getenv("LLM_BACKEND_TYPE"); backend {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return llm.NewOpenAIClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient()
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to ollama", "value", backend)
		return llm.NewOllamaClient()
	}
}

func main() {
	port := os.Getenv("GATEWAY_PORT")
	if port == "" {
		port = "12310"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		JSON:    true,
		Service: "gateway",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	llmClient, err := newLLMClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	blocker, err := guard.NewBlocker()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the pattern blocker: %v", err)
	}
	slog.Info("Loaded attack signatures", "count", blocker.PatternCount())

	// The de-identification service is optional; without it, redaction runs
	// on local patterns only.
	var deid guard.DeidentifyService
	if httpDeid, err := guard.NewHTTPDeidentifyClient(); err == nil {
		slog.Info("Using external de-identification service")
		deid = httpDeid
	} else {
		slog.Warn("DEID_SERVICE_URL not set, using local regex de-identification")
		deid = guard.NewRegexDeidentifier()
	}

	// The response cache survives restarts when a directory is configured;
	// otherwise answers are cached in memory for the process lifetime.
	var respCache agent.ResponseCache
	if dir := os.Getenv("RESPONSE_CACHE_DIR"); dir != "" {
		badgerCache, err := cache.NewBadgerCache(dir, cache.DefaultTTL)
		if err != nil {
			log.Fatalf("Failed to open the response cache: %v", err)
		}
		defer badgerCache.Close()
		slog.Info("Using persistent response cache", "dir", dir)
		respCache = badgerCache
	} else {
		slog.Warn("RESPONSE_CACHE_DIR not set, using in-memory response cache")
		respCache = cache.NewMemoryCache(cache.DefaultTTL)
	}

	// Weaviate is optional too: without it the gateway runs in lightweight
	// mode with an empty knowledge base and in-memory history.
	var (
		retriever    agent.Retriever
		historyStore agent.HistoryStore
	)
	weaviateClient, err := storage.NewClientFromEnv()
	if err != nil {
		log.Fatalf("Failed to create Weaviate client: %v", err)
	}
	if weaviateClient != nil {
		schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = storage.EnsureSchema(schemaCtx, weaviateClient,
			retrieval.GetKnowledgeChunkSchema(),
			history.GetConversationTurnSchema(),
		)
		cancel()
		if err != nil {
			log.Fatalf("Failed to ensure Weaviate schema: %v", err)
		}
		retriever = retrieval.NewWeaviateRetriever(weaviateClient)
		historyStore = history.NewWeaviateStore(weaviateClient)
	} else {
		retriever = retrieval.NoopRetriever{}
		historyStore = history.NewMemoryStore()
	}

	retryPolicy := agent.DefaultRetryPolicy()
	retryPolicy.OnRetry = func(op string, _ int, _ time.Duration, _ error) {
		observability.UpstreamRetriesTotal.WithLabelValues(op).Inc()
	}

	orch, err := agent.NewOrchestrator(agent.Dependencies{
		Blocker:   blocker,
		Judge:     guard.NewJudge(llmClient),
		Redactor:  guard.NewRedactor(deid),
		Router:    agent.NewRouter(llmClient),
		Retrieval: agent.NewRetrievalResponder(llmClient, retriever, historyStore),
		General:   agent.NewGeneralResponder(llmClient),
		Cache:     respCache,
		Retry:     retryPolicy,
	})
	if err != nil {
		log.Fatalf("Failed to build the pipeline: %v", err)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("gateway-service"))
	routes.SetupRoutes(router, orch)

	log.Println("Starting the gateway server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
