package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/cadence/internal/preset"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved build presets",
	Long:  paragraph(fmt.Sprintf("Save, list, show, and delete %s — named JSON documents holding a full build configuration, usable from the CLI (--preset) and the web UI.", keyword("presets"))),
}

var presetSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save the current flags as a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, outFile, bitrate, err := assembleBuildConfig(cmd.Root())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		dir, err := presetDir()
		if err != nil {
			return err
		}
		p := preset.Preset{
			Name:    args[0],
			Config:  cfg,
			OutFile: outFile,
			Bitrate: bitrate,
		}
		if err := preset.Save(dir, p); err != nil {
			return err
		}
		fmt.Printf("Saved preset %q to %s\n", args[0], dir)
		return nil
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		dir, err := presetDir()
		if err != nil {
			return err
		}
		presets, err := preset.List(dir)
		if err != nil {
			return err
		}
		if len(presets) == 0 {
			fmt.Println("No presets saved.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODE\tSTART\tSAVED")
		for _, p := range presets {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				p.Name, p.Config.Mode, p.Config.Start,
				p.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var presetShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a preset as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		dir, err := presetDir()
		if err != nil {
			return err
		}
		p, err := preset.Load(dir, args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		dir, err := presetDir()
		if err != nil {
			return err
		}
		if err := preset.Delete(dir, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted preset %q\n", args[0])
		return nil
	},
}

func init() {
	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetShowCmd, presetDeleteCmd)
}
