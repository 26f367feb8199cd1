package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/iburimskiy/ambient-particles/internal/ambient"
	"github.com/iburimskiy/ambient-particles/internal/config"
	"github.com/iburimskiy/ambient-particles/internal/game"
)

type flags struct {
	configPath string
	envFile    string
	scale      float64
	width      int
	height     int
	soundtrack string
	logLevel   string
	overlay    bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "ambient-particles",
		Short: "Ambient background of slow, faint drifting dots.",
		Long: `Renders a field of slow, low-opacity dots that drift and wrap around the window. ` +
			`The field pauses while the window is hidden and re-seeds after a resize. ` +
			`Keys: R restart, S stop, Space start, D overlay, O open config, Esc/Q quit.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML file overriding the default tuning")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file read for "+config.ScaleEnv)
	fs.Float64Var(&f.scale, "scale", 0, "density multiplier (overrides "+config.ScaleEnv+")")
	fs.IntVar(&f.width, "width", config.WindowWidth, "initial window width")
	fs.IntVar(&f.height, "height", config.WindowHeight, "initial window height")
	fs.StringVar(&f.soundtrack, "soundtrack", "", "optional wav/mp3/flac looped while visible")
	fs.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&f.overlay, "overlay", false, "show the debug overlay on start")
	return cmd
}

// resolver builds the config pipeline: defaults, YAML, dotenv/env, flags.
func resolver(cmd *cobra.Command, f *flags) func(path string) (config.Config, error) {
	return func(path string) (config.Config, error) {
		cfg := config.Default()
		if path != "" {
			var err error
			if cfg, err = config.Load(path); err != nil {
				return cfg, err
			}
		}
		if err := cfg.ApplyEnv(f.envFile); err != nil {
			return cfg, err
		}
		if cmd.Flags().Changed("scale") {
			cfg.Density = config.NormalizeDensity(f.scale)
		}
		return cfg, nil
	}
}

func run(cmd *cobra.Command, f *flags) error {
	level, err := parseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	load := resolver(cmd, f)
	cfg, err := load(f.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	slog.Info("particle tuning",
		"base_count", cfg.BaseCount,
		"count_range", []int{cfg.MinCount, cfg.MaxCount},
		"density", cfg.Density,
		"max_speed", cfg.MaxSpeed,
	)

	opts := game.Options{
		Config:     cfg,
		LoadConfig: load,
		Overlay:    f.overlay,
		Logger:     logger,
	}

	if f.soundtrack != "" {
		track, err := ambient.Open(f.soundtrack, logger)
		if err != nil {
			// the field runs fine without sound
			slog.Warn("soundtrack unavailable", "error", err)
		} else {
			defer closeLogged("soundtrack", track)
			if err := track.Play(); err != nil {
				slog.Warn("soundtrack unavailable", "error", err)
			} else {
				opts.Audio = track
			}
		}
	}

	ebiten.SetWindowSize(f.width, f.height)
	ebiten.SetWindowTitle("Ambient Particles - R: restart, S: stop, Space: start, D: overlay, O: config, Esc/Q: quit")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	g := game.NewGame(opts)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		slog.Error("game loop failed", "error", err)
		return err
	}
	slog.Info("bye")
	return nil
}

// closeLogged closes c on the way out; there is nobody left to return the
// error to, so it is logged.
func closeLogged(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn(what+" close failed", "error", err)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, err
	}
	return level, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
