package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lgp/pkg/lgp"
)

func (c *cli) newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored trainings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.newClient("")
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			items, err := client.Trainings(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(out, "training_id=%s created=%q runs=%d failures=%d best_fitness=%.6g\n",
					item.ID, humanize.Time(item.CreatedAtUTC), item.Runs, item.Failures, item.BestFitness)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum trainings to list (0 lists all)")
	return cmd
}

func (c *cli) newShowCmd() *cobra.Command {
	var showPrograms bool
	cmd := &cobra.Command{
		Use:   "show TRAINING_ID",
		Short: "Show a stored training and its runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.newClient("")
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			detail, err := client.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tr := detail.Training
			fmt.Fprintf(out, "training_id=%s created_at=%s runs=%d best_fitness=%.6g\n",
				tr.ID, tr.CreatedAtUTC.Format("2006-01-02T15:04:05Z"), tr.Runs, float64(tr.BestFitness))
			for _, f := range tr.Failures {
				fmt.Fprintf(out, "failed run=%d error=%q\n", f.Run, f.Error)
			}
			for _, ev := range detail.Evolutions {
				fmt.Fprintf(out, "run=%d seed=%d generations=%d evaluations=%s stopped=%t best_fitness=%.6g effective_length=%d\n",
					ev.Run, ev.Seed, ev.Generations, humanize.Comma(int64(ev.Evaluations)), ev.Stopped,
					float64(ev.BestFitness), ev.BestProgram.EffectiveLength)
				if showPrograms {
					fmt.Fprintf(out, "%s\n", ev.BestProgram.Effective)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPrograms, "programs", false, "print each run's effective best program")
	return cmd
}

func (c *cli) newProblemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "problems",
		Short: "List built-in problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range lgp.Problems() {
				p, err := lgp.ResolveProblem(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}
