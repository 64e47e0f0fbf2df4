package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gocredo.org/internal/audit"
	"gocredo.org/internal/auth"
	"gocredo.org/internal/httpapi"
	"gocredo.org/internal/obs"
	"gocredo.org/internal/wellness"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GOCREDO_COMMIT"))

	dsn := os.Getenv("GOCREDO_PG_DSN")
	if dsn == "" {
		log.Fatal("GOCREDO_PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	tokens, err := auth.NewTokenIssuer(os.Getenv("GOCREDO_AUTH_SECRET"), "gocredo")
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	recorder := audit.NewRecorder(audit.NewPGStore(db))

	authSvc, err := auth.NewService(auth.NewPGStore(db), recorder, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	wellnessSvc, err := wellness.NewService(wellness.NewPGStore(db))
	if err != nil {
		log.Fatalf("wellness service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, authSvc, wellnessSvc)

	addr := os.Getenv("GOCREDO_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting gocredo-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	// Drain queued audit entries before the store goes away.
	_ = recorder.Close(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
