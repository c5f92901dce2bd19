// Package main provides the entry point for the cadence CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/cadence/countdown"
	"github.com/dgnsrekt/cadence/countdown/speech"
	"github.com/dgnsrekt/cadence/countdown/synth"
	"github.com/dgnsrekt/cadence/internal/cache"
	"github.com/dgnsrekt/cadence/internal/encode"
	"github.com/dgnsrekt/cadence/internal/preset"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	// Build flags. Interval flags are in seconds to match what people
	// type on the command line; everything internal is milliseconds.
	flagMode          string
	flagStart         int
	flagInterval      float64
	flagLongInterval  float64
	flagEveryN        int
	flagSkipFirstRest int
	flagRestText      string
	flagSpeakInterval int
	flagSpeakAt       string
	flagMinuteText    string
	flagLang          string
	flagTLD           string
	flagLeadIn        string
	flagLeadInGapMS   int
	flagEndWith       string
	flagBeepFreq      int
	flagBeepMS        int
	flagBeepGain      float64
	flagFadeMS        int
	flagOutfile       string
	flagBitrate       string
	flagPreset        string
	flagDebug         bool

	rootCmd = &cobra.Command{
		Use:   "cadence",
		Short: "Build spoken countdown audio with beeps and rest prompts",
		Long: paragraph(fmt.Sprintf(
			"Render a %s — spoken numbers or minutes remaining, separated by precisely\ntimed beeps and rests — into one MP3 plus a millisecond timeline JSON.",
			keyword("countdown track"),
		)),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runBuild,
	}
)

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, outFile, bitrate, err := assembleBuildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
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
	resolver := speech.NewResolver(store, backend, cfg.Language, cfg.Accent,
		speech.WithFade(cfg.FadeMS))

	fmt.Printf("Building %d-%s countdown...\n", cfg.Start, modeNoun(cfg.Mode))
	result, err := countdown.Build(cmd.Context(), cfg, countdown.BuildOptions{
		Resolver: resolver,
		Encoder:  encode.ForPath(outFile, bitrate),
		OutFile:  outFile,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Wrote: %s\n", result.OutFile)
	fmt.Printf("Wrote: %s\n", result.TimelineFile)
	fmt.Printf("Track length: %s (%d cues)\n",
		(time.Duration(result.DurationMS) * time.Millisecond).Round(time.Millisecond),
		result.CueCount)
	return nil
}

func modeNoun(m countdown.Mode) string {
	if m == countdown.ModeMinutes {
		return "minute"
	}
	return "count"
}

// assembleBuildConfig merges defaults, an optional preset, and any
// explicitly set flags into the final build configuration.
func assembleBuildConfig(cmd *cobra.Command) (countdown.Config, string, string, error) {
	cfg := countdown.DefaultConfig()
	outFile := flagOutfile
	bitrate := flagBitrate

	if flagPreset != "" {
		dir, err := presetDir()
		if err != nil {
			return cfg, "", "", err
		}
		p, err := preset.Load(dir, flagPreset)
		if err != nil {
			return cfg, "", "", err
		}
		cfg = p.Config
		if !cmd.Flags().Changed("outfile") && p.OutFile != "" {
			outFile = p.OutFile
		}
		if !cmd.Flags().Changed("out-bitrate") && p.Bitrate != "" {
			bitrate = p.Bitrate
		}
	}

	changed := cmd.Flags().Changed
	if changed("mode") || flagPreset == "" {
		cfg.Mode = countdown.Mode(flagMode)
	}
	if changed("start") || flagPreset == "" {
		cfg.Start = flagStart
	}
	if changed("interval") || flagPreset == "" {
		cfg.IntervalMS = int(flagInterval * 1000)
	}
	if changed("long-interval") || flagPreset == "" {
		cfg.LongIntervalMS = int(flagLongInterval * 1000)
	}
	if changed("lang") || flagPreset == "" {
		cfg.Language = flagLang
	}
	if changed("tld") || flagPreset == "" {
		cfg.Accent = flagTLD
	}
	if changed("lead-in") {
		cfg.LeadInText = flagLeadIn
	}
	if changed("lead-in-gap-ms") {
		cfg.LeadInGapMS = flagLeadInGapMS
	}
	if changed("end-with") {
		cfg.EndText = flagEndWith
	}
	if changed("beep-freq") || flagPreset == "" {
		cfg.Beep.FreqHz = flagBeepFreq
	}
	if changed("beep-ms") || flagPreset == "" {
		cfg.Beep.DurationMS = flagBeepMS
	}
	if changed("beep-gain") || flagPreset == "" {
		cfg.Beep.GainDB = flagBeepGain
	}
	if changed("fade-ms") || flagPreset == "" {
		cfg.FadeMS = flagFadeMS
	}

	// Mode-specific flags only apply to their own mode, so a minutes
	// run doesn't trip validation over the reps-mode flag defaults.
	switch cfg.Mode {
	case countdown.ModeReps:
		if changed("every-n") || flagPreset == "" {
			cfg.Reps.EveryN = flagEveryN
		}
		if changed("skip-first-rest") {
			cfg.Reps.SkipFirstRests = flagSkipFirstRest
		}
		if changed("rest-text") {
			cfg.Reps.RestText = flagRestText
		}
		cfg.Minutes = countdown.MinutesOptions{MinuteText: cfg.Minutes.MinuteText}
	case countdown.ModeMinutes:
		if changed("speak-interval") {
			cfg.Minutes.SpeakInterval = flagSpeakInterval
		}
		if changed("speak-at") {
			speakAt, err := countdown.ParseSpeakAt(flagSpeakAt)
			if err != nil {
				return cfg, "", "", err
			}
			cfg.Minutes.SpeakAt = speakAt
		}
		if changed("minute-text") {
			cfg.Minutes.MinuteText = flagMinuteText
		}
		cfg.Reps = countdown.RepsOptions{RestText: cfg.Reps.RestText}
	}

	outFile, err := homedir.Expand(outFile)
	if err != nil {
		return cfg, "", "", fmt.Errorf("unable to expand outfile path: %w", err)
	}
	return cfg, outFile, bitrate, nil
}

func resolveCacheDir() (string, error) {
	if dir := viper.GetString("cache.dir"); dir != "" {
		return homedir.Expand(dir)
	}
	scope := gap.NewScope(gap.User, "cadence")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine cache directory: %w", err)
	}
	return filepath.Join(dir, "speech"), nil
}

func presetDir() (string, error) {
	if dir := viper.GetString("presets.dir"); dir != "" {
		return homedir.Expand(dir)
	}
	scope := gap.NewScope(gap.User, "cadence")
	dir, err := scope.DataPath("presets")
	if err != nil {
		return "", fmt.Errorf("unable to determine preset directory: %w", err)
	}
	return dir, nil
}

// setupLog sends logs to CADENCE_LOGFILE when set, otherwise to stderr
// when it is a terminal, and discards them when output is piped.
func setupLog() (func() error, error) {
	level := log.WarnLevel
	if flagDebug || viper.GetBool("debug") || os.Getenv("CADENCE_DEBUG") != "" {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if path := os.Getenv("CADENCE_LOGFILE"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("unable to open log file: %w", err)
		}
		log.SetOutput(f)
		return f.Close, nil
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	return func() error { return nil }, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	cobra.OnInitialize(func() {
		// Re-evaluate the log level once flags are parsed.
		if flagDebug {
			log.SetLevel(log.DebugLevel)
		}
	})
	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.Flags().StringVar(&flagMode, "mode", "reps", `countdown mode: "reps" or "minutes"`)
	rootCmd.Flags().IntVar(&flagStart, "start", 80, "starting number (reps or minutes depending on mode)")
	rootCmd.Flags().Float64Var(&flagInterval, "interval", 3.5, "seconds between normal cues")
	rootCmd.Flags().Float64Var(&flagLongInterval, "long-interval", 8.0, "seconds after a rest cue")
	rootCmd.Flags().IntVar(&flagEveryN, "every-n", 8, "insert a rest every N counts, 0 disables (reps mode)")
	rootCmd.Flags().IntVar(&flagSkipFirstRest, "skip-first-rest", 0, "number of initial rest periods to skip (reps mode)")
	rootCmd.Flags().StringVar(&flagRestText, "rest-text", "rest", "word to speak at rest cues (reps mode)")
	rootCmd.Flags().IntVar(&flagSpeakInterval, "speak-interval", 0, "speak every N minutes, 0 = all (minutes mode)")
	rootCmd.Flags().StringVar(&flagSpeakAt, "speak-at", "", `speak only at specific minutes, e.g. "30,15,10,5,1" (minutes mode)`)
	rootCmd.Flags().StringVar(&flagMinuteText, "minute-text", "minutes remaining", "text appended to the minute count (minutes mode)")
	rootCmd.Flags().StringVar(&flagLang, "lang", "en", "speech language code (e.g. en, es)")
	rootCmd.Flags().StringVar(&flagTLD, "tld", "com", "voice accent/region code (com, co.uk, com.au, ...)")
	rootCmd.Flags().StringVar(&flagLeadIn, "lead-in", "", `optional spoken lead-in line (e.g. "Get ready")`)
	rootCmd.Flags().IntVar(&flagLeadInGapMS, "lead-in-gap-ms", 1000, "silence after the lead-in (ms)")
	rootCmd.Flags().StringVar(&flagEndWith, "end-with", "", `optional phrase at the very end (e.g. "Good job!")`)
	rootCmd.Flags().IntVar(&flagBeepFreq, "beep-freq", 1000, "beep frequency in Hz")
	rootCmd.Flags().IntVar(&flagBeepMS, "beep-ms", 300, "beep duration in ms")
	rootCmd.Flags().Float64Var(&flagBeepGain, "beep-gain", -6.0, "beep gain in dB (negative = quieter)")
	rootCmd.Flags().IntVar(&flagFadeMS, "fade-ms", 12, "fade in/out per fragment to avoid clicks (ms)")
	rootCmd.Flags().StringVarP(&flagOutfile, "outfile", "o", "countdown_combined.mp3", "output file path (.mp3 or .wav)")
	rootCmd.Flags().StringVar(&flagBitrate, "out-bitrate", encode.DefaultBitrate, "MP3 bitrate, e.g. 128k, 192k, 256k")
	rootCmd.Flags().StringVar(&flagPreset, "preset", "", "start from a saved preset")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("synth.url", "http://127.0.0.1:5002")
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("presets.dir", "")

	rootCmd.AddCommand(configCmd, manCmd, presetCmd, cacheCmd, serveCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "cadence")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "cadence")}, dirs...)
	}

	if c := os.Getenv("CADENCE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("cadence")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("cadence")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "cadence.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
