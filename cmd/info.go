// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vlabsound/internal/audio"
	"vlabsound/internal/results"
	"vlabsound/internal/tui"
)

// Hooks for testing.
var (
	listDevices     = audio.ListDevices
	pickInputDevice = func() (*tui.Selection, error) { return tui.PickInputDevice(audio.HostDevices) }
)

func newDevicesCommand(opts *options) *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio devices, or pick the input device interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pick {
				return listDevices(opts.out)
			}

			sel, err := pickInputDevice()
			if err != nil {
				return err
			}
			if sel == nil {
				opts.printf("No device selected.\n")
				return nil
			}
			opts.printf("Selected [%d] %s at %.0f Hz. Add to config.yaml:\n\n", sel.Device.ID, sel.Device.Name, sel.SampleRate)
			opts.printf("audio:\n  input_device: %d\n  sample_rate: %.0f\n", sel.Device.ID, sel.SampleRate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pick, "pick", false, "Choose the input device and sample rate in a terminal UI")
	return cmd
}

func newResultsCommand(opts *options) *cobra.Command {
	var (
		typeName string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show saved experiment results and progress for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user := results.StaticIdentity(opts.cfg.UserID).CurrentUserID()

			var filter results.ExperimentType
			if typeName != "" {
				t, err := results.ParseExperimentType(typeName)
				if err != nil {
					return err
				}
				filter = t
			}

			store, err := results.NewJSONStore(opts.cfg.Results.Path)
			if err != nil {
				return fmt.Errorf("failed to open result store: %w", err)
			}
			all, err := store.UserResults(ctx, user)
			if err != nil {
				return err
			}
			progress, err := store.Progress(ctx, user)
			if err != nil {
				return err
			}

			list := all[:0:0]
			for _, r := range all {
				if filter == "" || r.ExperimentType == filter {
					list = append(list, r)
				}
			}

			if asJSON {
				enc := json.NewEncoder(opts.out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					User     string           `json:"user"`
					Progress results.Progress `json:"progress"`
					Results  []results.Result `json:"results"`
				}{user, progress, list})
			}

			opts.printf("Progress for %s: %d experiments\n", user, progress.Total)
			for _, t := range results.ExperimentTypes {
				opts.printf("  %-14s %d\n", t, progress.Count(t))
			}
			opts.printf("\n")

			if len(list) == 0 {
				opts.printf("No results.\n")
				return nil
			}
			w := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEXPERIMENT\tSAVED")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.ExperimentType, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Only show one experiment: wave, analysis or doppler")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
