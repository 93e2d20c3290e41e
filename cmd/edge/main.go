// Command edge fronts the web application. Every page navigation passes
// the session gate before it is proxied upstream, so role confinement and
// login redirects happen before any page renders.
package main

import (
	"context"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edunexus.org/internal/config"
	"edunexus.org/internal/gate"
	"edunexus.org/internal/identity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	upstream, err := url.Parse(cfg.EdgeUpstream)
	if err != nil {
		log.Fatalf("parse upstream %q: %v", cfg.EdgeUpstream, err)
	}

	tokens, err := identity.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	handler := gate.New(tokens).Middleware(proxy)

	srv := &http.Server{
		Addr:              cfg.EdgeAddr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting edunexus-edge on %s -> %s", cfg.EdgeAddr, upstream)

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
	log.Println("Stopped")
}
