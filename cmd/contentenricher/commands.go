package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"ContentEnricher/internal/annotation"
	"ContentEnricher/internal/app"
	"ContentEnricher/internal/config"
	"ContentEnricher/internal/logging"
	"ContentEnricher/internal/usecase"
)

const linkByDefaultOption = "wl_link_by_default"

// errProcessLocalCache is returned by commands that would only clear the cache of
// their own short-lived process.
var errProcessLocalCache = errors.New("image cache backend is process-local; set cache.backend to redis (or REDIS_URL) to invalidate cached images")

// builder constructs the application once flags and config are known.
type builder func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.Application, error)

type cli struct {
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
	build   builder
}

func newRootCmd(build builder) *cobra.Command {
	c := &cli{build: build}

	root := &cobra.Command{
		Use:   "contentenricher",
		Short: "Entity annotation and JSON-LD export for stored content",
		Long: `contentenricher renders stored posts with their entity annotations turned
into links and exports their schema.org JSON-LD.

Example usage:
  contentenricher render 42            # Annotated HTML, entities and JSON-LD
  contentenricher jsonld 42            # JSON-LD only
  contentenricher invalidate 42        # Drop the cached image list of post 42
  contentenricher flush-images         # Drop every cached image list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfgFile != "" {
				c.cfg = config.LoadFile(c.cfgFile)
			} else {
				c.cfg = config.Load()
			}
			c.logger = logging.NewWithWriter(cmd.ErrOrStderr(), c.cfg.Logging.Level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "YAML config file (default $CONTENT_ENRICHER_CONFIG)")

	root.AddCommand(
		c.renderCmd(),
		c.jsonldCmd(),
		c.entitiesCmd(),
		c.invalidateCmd(),
		c.flushImagesCmd(),
		c.settingsCmd(),
	)
	return root
}

func (c *cli) renderCmd() *cobra.Command {
	var feed bool
	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Render a content item with annotations, entity list and JSON-LD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if feed {
					ctx = annotation.WithFeed(ctx)
				}
				rendered, err := a.Renderer().Render(ctx, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rendered)
			})
		},
	}
	cmd.Flags().BoolVar(&feed, "feed", false, "render as a syndication feed (annotations left untouched)")
	return cmd
}

func (c *cli) jsonldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jsonld <id>",
		Short: "Print the JSON-LD of a content item and its referenced entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				docs, err := a.Renderer().JSONLD(ctx, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), docs)
			})
		},
	}
}

func (c *cli) entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities <id>",
		Short: "List the entity URIs annotated in a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				rendered, err := a.Renderer().Render(annotation.WithFeed(ctx), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rendered.Entities)
			})
		},
	}
}

func (c *cli) invalidateCmd() *cobra.Command {
	var metaKey string
	cmd := &cobra.Command{
		Use:   "invalidate <id>",
		Short: "Drop the cached image list of a content item",
		Long: `Drop the cached image list of a content item after it was saved.

With --meta-key the call is treated as a post meta change and only acts
when the key is the featured image association (` + usecase.FeaturedImageMetaKey + `).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.requireSharedCache(); err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if cmd.Flags().Changed("meta-key") {
					return a.Invalidator().MetaChanged(ctx, id, metaKey)
				}
				return a.Invalidator().ContentSaved(ctx, id)
			})
		},
	}
	cmd.Flags().StringVar(&metaKey, "meta-key", "", "post meta key that changed")
	return cmd
}

func (c *cli) flushImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-images",
		Short: "Drop every cached image list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireSharedCache(); err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Invalidator().FlushImages(ctx)
			})
		},
	}
}

func (c *cli) settingsCmd() *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Manage site options",
	}
	settings.AddCommand(&cobra.Command{
		Use:   "link-by-default <true|false>",
		Short: "Choose whether annotated entities are linked unless marked otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[0], err)
			}
			value := "no"
			if link {
				value = "yes"
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Repository().SetOption(ctx, linkByDefaultOption, value)
			})
		},
	})
	return settings
}

func (c *cli) withApp(cmd *cobra.Command, run func(context.Context, *app.Application) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := c.build(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.Warn("close application", "error", err)
		}
	}()

	return run(ctx, a)
}

func (c *cli) requireSharedCache() error {
	if c.cfg.Cache.Backend != config.CacheBackendRedis {
		return fmt.Errorf("backend %q: %w", c.cfg.Cache.Backend, errProcessLocalCache)
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid content id %q", raw)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
