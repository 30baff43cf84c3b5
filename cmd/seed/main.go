package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"catalog-be/internal/config"
	"catalog-be/internal/db"
	"catalog-be/internal/logger"
	"catalog-be/internal/metrics"
	"catalog-be/internal/product"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

//go:embed products.json
var sampleProducts []byte

var openDBFunc = db.Open

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seed",
		Usage: "insert the sample product catalog",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "delete every existing product first",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "JSON array of products to insert instead of the built-in samples",
			},
		},
		Action: func(c *cli.Context) error {
			inputs, err := loadInputs(c.String("file"))
			if err != nil {
				return err
			}
			n, err := seed(c.Context, inputs, c.Bool("reset"))
			if err != nil {
				return fmt.Errorf("error seeding products: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "Successfully seeded %d products!\n", n)
			return nil
		},
	}
}

func loadInputs(path string) ([]product.CreateInput, error) {
	raw := sampleProducts
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if raw, err = io.ReadAll(f); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	var inputs []product.CreateInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("invalid product file: %w", err)
	}
	return inputs, nil
}

func seed(ctx context.Context, inputs []product.CreateInput, reset bool) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, err
	}

	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()
	logger.L().Info("environment loaded", zap.Strings("files", cfg.LoadedFiles))

	conn, err := openDBFunc(ctx, cfg.DatabaseURL, cfg.DBName)
	if err != nil {
		return 0, err
	}
	defer conn.Close(ctx)

	repo, err := repositoryFor(ctx, conn)
	if err != nil {
		return 0, err
	}

	return product.NewService(repo, metrics.NewRegistry()).Seed(ctx, inputs, reset)
}

func repositoryFor(ctx context.Context, conn *db.Conn) (product.Repository, error) {
	switch conn.Kind {
	case db.KindMongo:
		if err := product.EnsureIndexes(ctx, conn.Database); err != nil {
			return nil, err
		}
		return product.NewMongoRepository(db.StaticMongo{DB: conn.Database}), nil
	case db.KindPostgres:
		return product.NewPostgresRepository(db.StaticSQL{DB: conn.SQL}), nil
	default:
		logger.L().Warn("seeding the in-memory backend; products are dropped on exit")
		return product.NewMemoryRepository(), nil
	}
}
