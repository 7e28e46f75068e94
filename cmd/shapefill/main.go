// Command shapefill serves the text-fills-shape rendering API and offers a
// one-shot render mode for local files.
package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shapefill/shapefill/font"
	"github.com/shapefill/shapefill/internal/config"
	"github.com/shapefill/shapefill/internal/fetch"
	"github.com/shapefill/shapefill/internal/fontdir"
	"github.com/shapefill/shapefill/internal/server"
	"github.com/shapefill/shapefill/internal/store"
	"github.com/shapefill/shapefill/raster"
	"github.com/shapefill/shapefill/render"
)

var version = "dev"

var (
	configPath string
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shapefill",
	Short: "Render text so it fills a shape",
	Long: `shapefill lays text out so it fills the opaque region of a shape
image, or places it along an SVG path, and serves the result over HTTP.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP rendering API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := initLogger(cfg.Logging.Level); err != nil {
			return err
		}
		defer logger.Sync()
		return serve(cmd.Context(), cfg)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render text into a shape from local files",
	RunE:  runRender,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("shapefill", version)
	},
}

var renderFlags struct {
	image  string
	font   string
	text   string
	color  string
	width  int
	height int
	out    string
	debug  bool
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		"shapefill.yaml", "path to config file")

	renderCmd.Flags().StringVar(&renderFlags.image, "image", "", "shape image file (required)")
	renderCmd.Flags().StringVar(&renderFlags.font, "font", "", "font file (required)")
	renderCmd.Flags().StringVar(&renderFlags.text, "text", "", "text to place (required)")
	renderCmd.Flags().StringVar(&renderFlags.color, "color", "000000", "text color as hex")
	renderCmd.Flags().IntVar(&renderFlags.width, "width", 0, "output width")
	renderCmd.Flags().IntVar(&renderFlags.height, "height", 0, "output height")
	renderCmd.Flags().StringVar(&renderFlags.out, "out", "out.png", "output file")
	renderCmd.Flags().BoolVar(&renderFlags.debug, "debug", false, "draw layout boundary markers")
	renderCmd.MarkFlagRequired("image")
	renderCmd.MarkFlagRequired("font")
	renderCmd.MarkFlagRequired("text")

	rootCmd.AddCommand(serveCmd, renderCmd, versionCmd)
}

func initLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err = zc.Build()
	if err != nil {
		return err
	}
	if lvl == zapcore.DebugLevel {
		// The rendering packages log through slog; surface their
		// per-iteration traces only in debug mode.
		render.SetLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.OutputDir, cfg.StoreDB, cfg.RenderTTL.Std(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var fonts server.FontRegistry
	if cfg.FontDir != "" {
		registry, err := fontdir.Open(cfg.FontDir, logger)
		if err != nil {
			return fmt.Errorf("open font directory: %w", err)
		}
		defer registry.Close()
		fonts = registry
	}

	fetcher := fetch.NewClient(cfg.Fetch.Timeout.Std(),
		cfg.Fetch.MaxImageBytes, cfg.Fetch.MaxFontBytes, logger)

	api := server.New(fetcher, st, logger, server.Options{
		BaseURL:       cfg.BaseURL,
		MaxTextWords:  cfg.Render.MaxTextWords,
		UpscaleWidth:  cfg.Render.UpscaleWidth,
		MaxConcurrent: cfg.Render.MaxConcurrent,
		Fonts:         fonts,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	col, err := raster.ParseHex(renderFlags.color)
	if err != nil {
		return err
	}

	shapeFile, err := os.Open(renderFlags.image)
	if err != nil {
		return err
	}
	defer shapeFile.Close()
	shape, err := raster.Decode(shapeFile)
	if err != nil {
		return fmt.Errorf("decode shape: %w", err)
	}

	src, err := font.NewSourceFromFile(renderFlags.font)
	if err != nil {
		return err
	}

	out, err := render.FitText(shape, renderFlags.text, src, render.FitOptions{
		Color:  col,
		Width:  renderFlags.width,
		Height: renderFlags.height,
		Debug:  renderFlags.debug,
	})
	if err != nil {
		return err
	}

	f, err := os.Create(renderFlags.out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, out); err != nil {
		return err
	}
	fmt.Println("wrote", renderFlags.out)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
