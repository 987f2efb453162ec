// Command seed fills the configured product store with generated catalog
// data. The same seed always produces the same names, prices and stock.
//
// Run: go run ./cmd/seed -n 500
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/N1kunj1998/ECOMMERCE/internal/app"
	"github.com/N1kunj1998/ECOMMERCE/internal/config"
	"github.com/N1kunj1998/ECOMMERCE/internal/service"
	"github.com/N1kunj1998/ECOMMERCE/pkg/logger"
)

type category struct {
	Name     string
	Nouns    []string
	MinPrice float64
	MaxPrice float64
}

var categories = []category{
	{"Electronics", []string{"Smart Speaker", "Power Bank", "Smartwatch", "Router"}, 20, 400},
	{"Cameras", []string{"Mirrorless Camera", "Action Camera", "Instant Camera"}, 90, 2500},
	{"Laptop", []string{"Ultrabook", "Gaming Laptop", "Chromebook", "Workstation"}, 300, 3500},
	{"Accessories", []string{"Laptop Sleeve", "USB-C Hub", "Wireless Mouse", "Keyboard"}, 8, 150},
	{"Headphones", []string{"Earbuds", "Studio Headphones", "Noise Cancelling Headphones"}, 15, 450},
	{"Food", []string{"Coffee Beans", "Green Tea", "Granola", "Dark Chocolate"}, 3, 40},
	{"Books", []string{"Cookbook", "Novel", "Field Guide", "Atlas"}, 5, 60},
	{"Clothes/Shoes", []string{"Running Shoes", "Rain Jacket", "Hoodie", "Sneakers"}, 15, 220},
	{"Beauty/Health", []string{"Face Serum", "Hair Dryer", "Electric Toothbrush"}, 6, 180},
	{"Sports", []string{"Yoga Mat", "Dumbbell Set", "Tennis Racket"}, 10, 300},
	{"Outdoor", []string{"Camping Tent", "Hiking Backpack", "Headlamp"}, 12, 500},
	{"Home", []string{"Desk Lamp", "Cast Iron Pan", "Throw Blanket"}, 10, 250},
}

var adjectives = []string{"Classic", "Compact", "Pro", "Everyday", "Premium", "Lightweight", "Essential", "Deluxe"}

func main() {
	n := flag.Int("n", 200, "number of products to create")
	seed := flag.Uint64("seed", 42, "random seed")
	owner := flag.String("user", "", "owning admin user id (random when empty)")
	flag.Parse()

	if err := run(*n, *seed, *owner); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(n int, seed uint64, owner string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	catalog, closeStores, err := app.NewCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	if owner == "" {
		owner = uuid.NewString()
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := catalog.CreateProduct(ctx, owner, generate(rng, i)); err != nil {
			return fmt.Errorf("create product %d: %w", i, err)
		}
		if (i+1)%100 == 0 {
			log.Info("seeding", slog.Int("created", i+1), slog.Int("total", n))
		}
	}

	log.Info("seed complete", slog.Int("products", n), slog.String("store", cfg.StoreDriver))
	return nil
}

func generate(rng *rand.Rand, i int) service.CreateProductInput {
	c := categories[rng.IntN(len(categories))]
	noun := c.Nouns[rng.IntN(len(c.Nouns))]
	adj := adjectives[rng.IntN(len(adjectives))]

	price := c.MinPrice + rng.Float64()*(c.MaxPrice-c.MinPrice)
	return service.CreateProductInput{
		Name:        fmt.Sprintf("%s %s #%d", adj, noun, i+1),
		Description: fmt.Sprintf("%s %s from the %s range.", adj, noun, c.Name),
		Price:       math.Round(price*100) / 100,
		Category:    c.Name,
		Stock:       rng.IntN(200),
	}
}
