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
	"github.com/joho/godotenv"

	"societyhub.org/internal/auth"
	"societyhub.org/internal/httpapi"
	"societyhub.org/internal/identity"
	"societyhub.org/internal/invite"
	"societyhub.org/internal/obs"
	"societyhub.org/internal/otp"
	"societyhub.org/internal/society"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is a convenience for local runs; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		users     identity.Store
		otpStore  otp.Store
		invStore  invite.Store
		societies society.Store
		db        *sql.DB
	)

	if dsn := os.Getenv("SOCIETYHUB_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		users = identity.NewPGStore(db)
		otpStore = otp.NewPGStore(db)
		invStore = invite.NewPGStore(db)
		societies = society.NewPGStore(db)
	} else {
		// Without a DSN everything lives in memory; useful for demos only.
		log.Println("SOCIETYHUB_PG_DSN not set, running with in-memory stores")
		users = identity.NewInMemory()
		otpStore = otp.NewInMemory()
		invStore = invite.NewInMemory()
		societies = society.NewInMemory()
	}

	otps := otp.NewLedger(otpStore)
	invites := invite.NewLedger(invStore, otps, users)
	svc := auth.NewService(users, otps, invites)

	testingMode := os.Getenv("SOCIETYHUB_TESTING_MODE") == "true"
	if testingMode {
		log.Println("testing mode enabled: issued codes are echoed in responses")
	}

	api := httpapi.New(svc, societies, httpapi.ReadyProbe{DB: db}, httpapi.Config{
		Version:     version,
		TestingMode: testingMode,
	})

	addr := os.Getenv("SOCIETYHUB_ADDR")
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

	log.Printf("Starting societyhub-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
