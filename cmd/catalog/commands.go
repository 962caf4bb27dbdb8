package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/catalog"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/config"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/console"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/handler"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/server"
	"github.com/vyrodovalexey/mimosa-toolkit/internal/store"
)

const (
	usageText     = "Usage: catalog add | list | serve"
	emptyListText = "No products found."
)

var separator = strings.Repeat("-", 40)

// cli carries what every subcommand needs.
type cli struct {
	cfg      *config.Config
	logger   *zap.Logger
	dataFile string
}

func newRootCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	cobra.EnableCaseInsensitive = true

	c := &cli{cfg: cfg, logger: logger}

	root := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the product catalog JSON file",
		Long: `Adds products to and lists products from a flat JSON catalog file,
or serves the catalog read-only over HTTP.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		// No verb or an unknown verb is not an error.
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), usageText)
		},
	}
	root.PersistentFlags().StringVar(&c.dataFile, "file", cfg.DataFile, "path of the catalog JSON file")

	root.AddCommand(
		&cobra.Command{
			Use:   "add",
			Short: "Add a product interactively",
			Args:  cobra.NoArgs,
			RunE:  c.runAdd,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored products",
			Args:  cobra.NoArgs,
			RunE:  c.runList,
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the catalog over HTTP",
			Args:  cobra.NoArgs,
			RunE:  c.runServe,
		},
	)

	return root
}

func (c *cli) catalog() *catalog.Catalog {
	return catalog.New(store.NewFileStore(c.dataFile, c.logger), c.logger)
}

func (c *cli) runAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	cat := c.catalog()

	products, err := cat.Products(ctx)
	if err != nil {
		return err
	}
	id, err := store.NextID(products)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Add a new product ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "ID generated automatically: %s\n", id)

	p, err := console.NewPrompter(cmd.InOrStdin(), out).ReadProduct()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("input ended before the product was complete: %w", err)
		}
		return err
	}

	stored, total, err := cat.Add(ctx, p)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nProduct added successfully (ID: %s)\n", stored.ID)
	fmt.Fprintf(out, "Total products: %d\n", total)
	return nil
}

func (c *cli) runList(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	summaries, count, err := c.catalog().List(cmd.Context())
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Fprintln(out, emptyListText)
		return nil
	}

	fmt.Fprintf(out, "\n=== %d products ===\n\n", count)
	for s := range summaries {
		fmt.Fprintf(out, "%s\n%s\n", s, separator)
	}
	return nil
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := c.catalog()
	srv := server.New("catalog", c.cfg.CatalogAddress(), c.cfg, c.logger,
		handler.NewCatalogHandler(cat, c.logger),
		handler.NewFeedHandler(cat, c.cfg.FeedInterval, c.logger),
	)

	c.logger.Info("serving catalog",
		zap.String("data_file", c.dataFile),
		zap.Int("catalog_port", c.cfg.CatalogPort),
		zap.Duration("feed_interval", c.cfg.FeedInterval),
	)

	return serveUntilDone(ctx, srv, c.cfg, c.logger)
}

// serveUntilDone runs srv until ctx is cancelled, then shuts it down
// within the configured timeout.
func serveUntilDone(ctx context.Context, srv *server.Server, cfg *config.Config, logger *zap.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
