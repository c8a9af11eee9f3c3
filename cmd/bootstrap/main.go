// Command bootstrap prepares a deployment before the first gauntletd start:
// Postgres score schema, catalog preflight, and derived-key sanity. Safe to
// run repeatedly.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/crypto"
	"github.com/Mindburn-Labs/gauntlet/pkg/score"

	_ "github.com/lib/pq"
)

const version = "0.1.0"

func main() {
	ctx := context.Background()

	// 1. Score schema
	dbURL := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		dbURL = os.Args[1]
	}
	if dbURL == "" {
		log.Println("[bootstrap] DATABASE_URL not set, skipping score schema")
	} else {
		initScoreSchema(ctx, dbURL)
	}

	// 2. Catalog preflight
	path := os.Getenv("GAUNTLET_CATALOG")
	if path == "" {
		path = "catalog.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("[bootstrap] no catalog at %s, daemon will use the builtin default", path)
	} else {
		cat, err := catalog.LoadFile(ctx, path, version)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
		log.Printf("[bootstrap] catalog %s: %d rules", path, cat.Len())
	}

	// 3. Derived-key sanity
	master := os.Getenv("GAUNTLET_MASTER_SECRET")
	if master == "" {
		log.Fatal("GAUNTLET_MASTER_SECRET environment variable is required")
	}
	signer, err := crypto.DeriveSigner([]byte(master), crypto.PurposeAnnounce)
	if err != nil {
		log.Fatalf("Failed to derive announce signer: %v", err)
	}
	log.Printf("[bootstrap] announce key: %s", signer.KeyID())

	for _, purpose := range []string{crypto.PurposeWebhook, crypto.PurposeAdminJWT} {
		if _, err := crypto.DeriveKey([]byte(master), purpose, 32); err != nil {
			log.Fatalf("Failed to derive %s key: %v", purpose, err)
		}
	}
	log.Println("[bootstrap] webhook and admin keys derivable")

	log.Println("[bootstrap] Bootstrap Complete.")
}

func initScoreSchema(ctx context.Context, dbURL string) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to reach db: %v", err)
	}

	keeper := score.NewPostgresKeeper(db)
	if err := keeper.Init(ctx); err != nil {
		log.Fatalf("Failed to init score schema: %v", err)
	}
	log.Println("[bootstrap] score schema ready")
}
