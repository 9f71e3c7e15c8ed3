package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Skufu/fisioplan/internal/recommend"
)

type options struct {
	knowledgeFile string
	policy        string
}

// NewRootCmd creates the top-level "fisioplan" command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "fisioplan",
		Short:         "Physiotherapy treatment plan generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.knowledgeFile, "knowledge", os.Getenv("KNOWLEDGE_FILE"), "Knowledge base file (YAML or JSON); built-in table when empty")
	root.PersistentFlags().StringVar(&opts.policy, "policy", os.Getenv("INPUT_POLICY"), "Out-of-range input policy: reject or clamp; reject when empty")

	root.AddCommand(
		newRecommendCmd(opts),
		newBatchCmd(opts),
		newConditionsCmd(opts),
	)

	return root
}

func (o *options) engine() (*recommend.Engine, error) {
	policy, err := recommend.ParseInputPolicy(strings.ToLower(o.policy))
	if err != nil {
		return nil, err
	}

	kb := recommend.DefaultKnowledge()
	if o.knowledgeFile != "" {
		kb, err = recommend.LoadKnowledge(o.knowledgeFile)
		if err != nil {
			return nil, err
		}
	}
	return recommend.NewEngine(kb, recommend.WithInputPolicy(policy))
}

// openInput returns stdin for "-" and the named file otherwise.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

func newConditionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "conditions",
		Short: "List the conditions known to the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "knowledge version %s\n", engine.Version())
			for _, name := range engine.Conditions() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
