package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shelftest/shelftest/internal/httpapi"
	"github.com/shelftest/shelftest/internal/insight"
	"github.com/shelftest/shelftest/internal/narrative"
	"github.com/shelftest/shelftest/internal/report"
	"github.com/shelftest/shelftest/internal/store"
	"github.com/shelftest/shelftest/internal/telemetry"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", envOr("SHELFTEST_DB", "shelftest.db"), "Path to the SQLite result store")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "shelftest-server")
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	loader := insight.NewLoader(insight.NewService(st))
	renderer := report.NewPDFRenderer()

	var generator *narrative.Generator
	if caller, err := narrative.NewAnthropicCallerFromEnv(); err == nil {
		generator = narrative.NewGenerator(caller, st)
	} else {
		log.Printf("shelftest-server narrative_disabled reason=%q", err.Error())
	}

	srv := &http.Server{
		Addr:    *addr,
		Handler: httpapi.NewServer(loader, renderer, generator),
	}

	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Printf("shelftest-server listening addr=%s db=%s", *addr, *dbPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
