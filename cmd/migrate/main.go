// Command migrate manages the database schema and the bootstrap account.
//
//	migrate up         apply pending migrations
//	migrate down       roll back the last migration
//	migrate status     list applied migrations
//	migrate seed       apply seed SQL
//	migrate bootstrap  create the first super_admin (idempotent)
//
// bootstrap reads EDUNEXUS_BOOTSTRAP_EMAIL and EDUNEXUS_BOOTSTRAP_PASSWORD
// so no credential ever lives in a seed file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"edunexus.org/internal/identity"
	"edunexus.org/internal/migrate"
	"edunexus.org/internal/store/pg"
	"edunexus.org/migrations"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("EDUNEXUS_PG_DSN"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or EDUNEXUS_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|bootstrap]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), migrations.SQL(), migrations.Seeds())

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "bootstrap":
		err = bootstrap(ctx, store)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

// bootstrap creates the initial super_admin account unless one already
// exists with the configured email.
func bootstrap(ctx context.Context, store identity.Store) error {
	email := os.Getenv("EDUNEXUS_BOOTSTRAP_EMAIL")
	password := os.Getenv("EDUNEXUS_BOOTSTRAP_PASSWORD")
	if email == "" || password == "" {
		return errors.New("set EDUNEXUS_BOOTSTRAP_EMAIL and EDUNEXUS_BOOTSTRAP_PASSWORD")
	}
	if _, err := store.Users().FindByEmail(ctx, email); err == nil {
		log.Printf("bootstrap account %s already exists", email)
		return nil
	} else if !errors.Is(err, identity.ErrNotFound) {
		return err
	}

	tokens, err := identity.NewTokenService("bootstrap-only", "edunexus", time.Hour)
	if err != nil {
		return err
	}
	svc, err := identity.NewService(store, tokens)
	if err != nil {
		return err
	}
	user, err := svc.Register(ctx, identity.RegisterInput{
		Name:     "Platform Administrator",
		Email:    email,
		Password: password,
		Role:     identity.RoleSuperAdmin,
	})
	if err != nil {
		return err
	}
	log.Printf("created super_admin %s (%s)", user.Code, user.Email)
	return nil
}
