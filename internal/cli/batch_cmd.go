package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Skufu/fisioplan/internal/recommend"
)

const maxLineBytes = 1 << 20

type batchLine struct {
	number int
	raw    []byte
}

type batchResult struct {
	out []byte
	err error
}

func newBatchCmd(opts *options) *cobra.Command {
	var (
		inPath  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate plans for a JSON-lines file of profiles",
		Long: `Read one patient profile per line and write one recommendation per line,
in input order. Invalid lines are reported on stderr with their line number;
the command fails after every line has been processed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return fmt.Errorf("--workers must be at least 1, got %d", workers)
			}
			engine, err := opts.engine()
			if err != nil {
				return err
			}

			in, err := openInput(cmd, inPath)
			if err != nil {
				return err
			}
			defer in.Close()

			lines, err := readLines(in)
			if err != nil {
				return err
			}

			results := runBatch(engine, lines, workers)

			failed := 0
			out := cmd.OutOrStdout()
			for i, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", lines[i].number, r.err)
					continue
				}
				fmt.Fprintln(out, string(r.out))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d profiles failed", failed, len(lines))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "-", "JSON-lines input file, or - for stdin")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of concurrent workers")
	return cmd
}

func readLines(r io.Reader) ([]batchLine, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []batchLine
	n := 0
	for scanner.Scan() {
		n++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		lines = append(lines, batchLine{number: n, raw: append([]byte(nil), raw...)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return lines, nil
}

// runBatch generates every line concurrently. Each worker writes only its own
// slot, so results need no locking and keep input order.
func runBatch(engine *recommend.Engine, lines []batchLine, workers int) []batchResult {
	results := make([]batchResult, len(lines))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, line := range lines {
		i, line := i, line // per-iteration copies; go directive is 1.21
		g.Go(func() error {
			results[i] = generateLine(engine, line.raw)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func generateLine(engine *recommend.Engine, raw []byte) batchResult {
	var profile recommend.PatientProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return batchResult{err: fmt.Errorf("decoding profile: %w", err)}
	}
	rec, err := engine.Generate(profile)
	if err != nil {
		return batchResult{err: err}
	}
	out, err := json.Marshal(rec)
	if err != nil {
		return batchResult{err: fmt.Errorf("encoding recommendation: %w", err)}
	}
	return batchResult{out: out}
}
