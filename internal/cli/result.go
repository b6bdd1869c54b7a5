package cli

import (
	"github.com/spf13/cobra"
)

// NewResultCmd создаёт группу команд для просмотра результатов.
func NewResultCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Inspect collected results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List collected results (duplicates included)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			results, err := client.ListResults()
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(results)
				return nil
			}
			printResults(out, results)
			return nil
		},
	})

	return cmd
}

func printResults(out *Output, results []ResultResponse) {
	headers := []string{"TASK_ID", "TYPE", "RESULT", "PROCESSED"}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.TaskID, r.Type, formatValues(r.Result), r.ProcessedAt}
	}
	out.Table(headers, rows)
}
