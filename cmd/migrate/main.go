package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"storefront-checkout/internal/pkg/config"

	"ariga.io/atlas-go-sdk/atlasexec"
)

// migrate brings the database schema in line with migrations/ through the
// atlas CLI, which must be on PATH.
func main() {
	var (
		schemaFile = flag.String("schema", "migrations/001_initial_schema.sql", "desired schema")
		devURL     = flag.String("dev-url", "docker://postgres/17/dev", "atlas dev database used to compute the diff")
		dryRun     = flag.Bool("dry-run", false, "print planned statements without applying them")
		atlasBin   = flag.String("atlas", "atlas", "atlas binary")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}

	abs, err := filepath.Abs(*schemaFile)
	if err != nil {
		logger.Error("スキーマファイルのパス解決に失敗しました", "error", err)
		os.Exit(1)
	}

	client, err := atlasexec.NewClient(filepath.Dir(abs), *atlasBin)
	if err != nil {
		logger.Error("atlasクライアントの初期化に失敗しました", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := client.SchemaApply(ctx, &atlasexec.SchemaApplyParams{
		URL:    cfg.DB.BuildDSN(),
		To:     "file://" + abs,
		DevURL: *devURL,
		DryRun: *dryRun,
	})
	if err != nil {
		logger.Error("マイグレーションに失敗しました", "error", err)
		os.Exit(1)
	}

	logger.Info("マイグレーションが完了しました",
		"applied", len(res.Changes.Applied),
		"pending", len(res.Changes.Pending),
		"dry_run", *dryRun)
}
