package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Skufu/fisioplan/internal/recommend"
)

func newRecommendCmd(opts *options) *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate a treatment plan for one patient profile",
		Long: `Read a patient profile as JSON and print the treatment recommendation.

Example profile:
  {"age": 25, "condition": "lombalgia", "severity": "mild",
   "painLevel": 2, "lifestyle": "active"}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}

			in, err := openInput(cmd, profilePath)
			if err != nil {
				return err
			}
			defer in.Close()

			var profile recommend.PatientProfile
			if err := json.NewDecoder(in).Decode(&profile); err != nil {
				return fmt.Errorf("decoding profile: %w", err)
			}

			rec, err := engine.Generate(profile)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding recommendation: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "-", "Profile JSON file, or - for stdin")
	return cmd
}
