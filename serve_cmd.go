package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/cadence/countdown"
	"github.com/dgnsrekt/cadence/countdown/speech"
	"github.com/dgnsrekt/cadence/countdown/synth"
	"github.com/dgnsrekt/cadence/internal/cache"
	"github.com/dgnsrekt/cadence/internal/encode"
	"github.com/dgnsrekt/cadence/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front-end",
	Long:  paragraph(fmt.Sprintf("Serve a small %s for building countdown tracks from a browser or script: submit a build, poll its status, download the track and timeline, browse presets.", keyword("HTTP API"))),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		srvCfg, err := env.ParseAs[server.Config]()
		if err != nil {
			return fmt.Errorf("error parsing server config: %w", err)
		}
		if srvCfg.PresetDir == "" {
			if dir, err := presetDir(); err == nil {
				srvCfg.PresetDir = dir
			}
		}

		cacheDir, err := resolveCacheDir()
		if err != nil {
			return err
		}
		store, err := cache.Open(cacheDir)
		if err != nil {
			return fmt.Errorf("unable to open speech cache: %w", err)
		}
		defer store.Close() //nolint:errcheck

		backend := synth.NewClient(viper.GetString("synth.url"))

		build := func(ctx context.Context, cfg countdown.Config, outFile, bitrate string) (*countdown.BuildResult, error) {
			resolver := speech.NewResolver(store, backend, cfg.Language, cfg.Accent,
				speech.WithFade(cfg.FadeMS))
			return countdown.Build(ctx, cfg, countdown.BuildOptions{
				Resolver: resolver,
				Encoder:  encode.ForPath(outFile, bitrate),
				OutFile:  outFile,
			})
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.New(srvCfg, build).Run(ctx)
	},
}
