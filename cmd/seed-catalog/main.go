// seed-catalog loads institutions into the database from a JSON file.
// Usage:
//
//	seed-catalog institutions.json
//	seed-catalog --list
//
// The input is an array of institution objects. Department and level
// lists tolerate both plain arrays and the double-encoded strings older
// exports contain.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/campusreach/campaign-studio/internal/audience"
	"github.com/campusreach/campaign-studio/internal/storage"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	path := ""
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			path = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	store := storage.New(db)
	ctx := context.Background()

	if listOnly {
		insts, err := store.ListInstitutions(ctx)
		if err != nil {
			log.Fatalf("list institutions: %v", err)
		}
		for _, inst := range insts {
			fmt.Printf("  %-12s %-30s %d departments, %d levels\n",
				inst.ID, inst.Name, len(inst.Departments), len(inst.Levels))
		}
		fmt.Printf("Total: %d institutions\n", len(insts))
		return
	}

	if path == "" {
		log.Fatal("usage: seed-catalog <institutions.json> | --list")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	var insts []audience.Institution
	if err := json.Unmarshal(data, &insts); err != nil {
		log.Fatalf("parse %s: %v", path, err)
	}

	var okCount, errCount int
	for _, inst := range insts {
		if inst.ID == "" || inst.Name == "" {
			log.Printf("skipping institution with missing id or name: %+v", inst)
			errCount++
			continue
		}
		if err := store.UpsertInstitution(ctx, inst); err != nil {
			log.Printf("upsert %s: %v", inst.ID, err)
			errCount++
			continue
		}
		okCount++
	}

	fmt.Printf("Seeded %d institutions (%d skipped)\n", okCount, errCount)
}
