package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type attribute struct {
	Code  string
	Label string
	Price string
}

var formats = []attribute{
	{"a5", "A5 (148 x 210 mm)", "0.05"},
	{"a4", "A4 (210 x 297 mm)", "0.10"},
	{"a3", "A3 (297 x 420 mm)", "0.20"},
	{"carte_visite", "Carte de visite (85 x 55 mm)", "0.03"},
}

var supports = []attribute{
	{"papier_mat", "Papier mat 135g", "0.02"},
	{"papier_bril", "Papier brillant 135g", "0.05"},
	{"papier_recycle", "Papier recycle 120g", "0.03"},
	{"carton", "Carton rigide 300g", "0.08"},
}

var finishes = []attribute{
	{"vernis", "Vernis selectif", "0.10"},
	{"pelliculage_mat", "Pelliculage mat", "0.15"},
	{"pelliculage_brillant", "Pelliculage brillant", "0.12"},
	{"dorure", "Dorure a chaud", "0.40"},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	seedAttributes(ctx, pool, "formats", "unit_price_ex_vat", formats)
	seedAttributes(ctx, pool, "supports", "extra_price_ex_vat", supports)
	seedAttributes(ctx, pool, "finishes", "extra_price_ex_vat", finishes)

	log.Println("seeding completed")
}

func seedAttributes(ctx context.Context, pool *pgxpool.Pool, table, priceColumn string, rows []attribute) {
	log.Printf("seeding %s...", table)
	for _, row := range rows {
		query := `INSERT INTO ` + table + ` (code, label, ` + priceColumn + `)
			VALUES ($1, $2, $3::numeric)
			ON CONFLICT ((lower(code))) DO UPDATE
			SET label = EXCLUDED.label, ` + priceColumn + ` = EXCLUDED.` + priceColumn
		if _, err := pool.Exec(ctx, query, row.Code, row.Label, row.Price); err != nil {
			log.Fatalf("seed %s %s: %v", table, row.Code, err)
		}
	}
	log.Printf("seeded %d %s", len(rows), table)
}
