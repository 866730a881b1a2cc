package main

import (
	"context"
	"crypto/x509"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
	"github.com/elhub/auth-grant-manager-sub001/internal/httpapi"
	"github.com/elhub/auth-grant-manager-sub001/internal/obs"
	"github.com/elhub/auth-grant-manager-sub001/internal/pades"
	"github.com/elhub/auth-grant-manager-sub001/internal/process"
	"github.com/elhub/auth-grant-manager-sub001/internal/refdata"
)

var version = "0.3.0"

func main() {
	obs.Init()

	dsn := os.Getenv("AGM_PG_DSN")
	if dsn == "" {
		log.Fatal("AGM_PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := authorization.NewPGStore(db)

	persons := refdata.NewPersons(mustEnv("AGM_PERSONS_URL"), nil)
	meteringPoints := refdata.NewMeteringPoints(mustEnv("AGM_METERINGPOINTS_URL"), nil)
	organisations := refdata.NewOrganisations(mustEnv("AGM_ORGANISATIONS_URL"), nil)
	pricing := refdata.NewPricing(mustEnv("AGM_PRICING_URL"), nil)

	resolver := authorization.NewResolver(store, persons)
	validator := process.NewValidator(persons, meteringPoints, organisations, pricing,
		process.WithContractCheck(os.Getenv("AGM_CONTRACT_CHECK") == "true"))

	signer := pades.NewRemoteSigner(mustEnv("AGM_SIGNER_URL"), nil)
	generator := pades.NewRemoteGenerator(mustEnv("AGM_GENERATOR_URL"), nil)
	signatures := pades.NewValidator(
		mustLoadRoots("AGM_SYSTEM_ROOTS"),
		mustLoadRoots("AGM_BANKID_ROOTS"),
	)

	api := httpapi.New(httpapi.Config{
		Requests:   authorization.NewRequestService(store, resolver),
		Documents:  authorization.NewDocumentService(store, resolver, generator, signer, signatures),
		Grants:     authorization.NewGrantService(store, mustEnv("AGM_CONSUMER_SYSTEM_ID")),
		Validator:  validator,
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	addr := os.Getenv("AGM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	handler := httpapi.RateLimit(api.Handler(), 40, 20)
	handler = httpapi.MaxBodyBytes(handler, 4<<20)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting auth-grant-manager %s on %s", version, srv.Addr)

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
	_ = db.Close()
	log.Println("Stopped")
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s is required", key)
	}
	return v
}

func mustLoadRoots(key string) *x509.CertPool {
	path := mustEnv(key)
	pem, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", key, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		log.Fatalf("%s: no certificates in %s", key, path)
	}
	return pool
}
