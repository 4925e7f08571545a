package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"visitstats/internal/aggregator"
	"visitstats/internal/repository"
	"visitstats/pkg/database"
)

const usage = "Usage: go run ./cmd/migrate [up|drop|status|import <state-file>]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	// Get command
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	ctx := context.Background()

	if command == "import" {
		if len(os.Args) < 3 {
			fmt.Println(usage)
			os.Exit(1)
		}
		if err := importStateFile(ctx, dbURL, os.Args[2]); err != nil {
			log.Fatalf("Failed to import state file: %v", err)
		}
		fmt.Println("✅ State file imported successfully")
		return
	}

	// Connect to database
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if _, err := conn.Exec(ctx, repository.PostgresDropSchema); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if _, err := conn.Exec(ctx, repository.PostgresSchema); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "status":
		if err := printStatus(ctx, conn); err != nil {
			log.Fatalf("Failed to read status: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func printStatus(ctx context.Context, conn *pgx.Conn) error {
	var rows, clients int64
	err := conn.QueryRow(ctx, `SELECT COUNT(*), COUNT(DISTINCT client_id) FROM visit_buckets`).Scan(&rows, &clients)
	if err != nil {
		return fmt.Errorf("failed to count buckets: %w", err)
	}

	var (
		version int
		total   int64
		savedAt time.Time
	)
	err = conn.QueryRow(ctx, `SELECT version, total_visits, saved_at FROM visit_meta WHERE id = 1`).Scan(&version, &total, &savedAt)
	if err == pgx.ErrNoRows {
		fmt.Printf("  No snapshot saved yet (%d bucket rows)\n", rows)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read visit_meta: %w", err)
	}

	fmt.Printf("  Layout version: %d\n", version)
	fmt.Printf("  Total visits:   %d\n", total)
	fmt.Printf("  Unique clients: %d\n", clients)
	fmt.Printf("  Bucket rows:    %d\n", rows)
	fmt.Printf("  Saved at:       %s\n", savedAt.UTC().Format(time.RFC3339))
	return nil
}

// importStateFile copies a file-backend snapshot into PostgreSQL
func importStateFile(ctx context.Context, dbURL, path string) error {
	src, err := repository.NewFileStore(path)
	if err != nil {
		return err
	}
	snapshot, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("no snapshot found at %s", path)
	}
	if err := aggregator.New(time.UTC).Restore(snapshot); err != nil {
		return err
	}

	db, err := database.NewPostgresDB(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	dst, err := repository.NewPostgresStore(ctx, db)
	if err != nil {
		return err
	}
	if err := dst.Save(ctx, snapshot); err != nil {
		return err
	}

	fmt.Printf("  Imported %d visits in %d buckets\n", snapshot.Total, len(snapshot.Buckets))
	return nil
}
