package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tasklane.org/internal/migrate"
	"tasklane.org/internal/store/sqlstore"
)

func main() {
	log.SetFlags(0)
	var (
		driver         = flag.String("driver", envOr("TASKLANE_DB_DRIVER", sqlstore.DriverSQLite), "database driver: pgx (postgres) or sqlite")
		dsn            = flag.String("dsn", envOr("TASKLANE_DB_DSN", "file:tasklane.db"), "database DSN")
		migrationsPath = flag.String("migrations", "", "directory of SQL migrations (default: embedded schema)")
		seedsPath      = flag.String("seeds", "", "directory of SQL seeds")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [-driver d] [-dsn dsn] [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlstore.Open(*driver, *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var opts []migrate.Option
	if *seedsPath != "" {
		opts = append(opts, migrate.WithSeeds(os.DirFS(*seedsPath)))
	}
	var mgr *migrate.Manager
	if *migrationsPath != "" {
		mgr = migrate.NewManager(db.SQL(), os.DirFS(*migrationsPath), opts...)
	} else if mgr, err = db.Migrator(opts...); err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	switch flag.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			fmt.Println("applied", name)
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if errors.Is(err, migrate.ErrNothingApplied) {
			fmt.Println("nothing to roll back")
			err = nil
		} else if err == nil {
			fmt.Println("rolled back", name)
		}
	case "seed":
		if *seedsPath == "" {
			log.Fatal("seed requires -seeds")
		}
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
