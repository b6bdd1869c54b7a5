package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewTaskCmd создаёт группу команд для просмотра задач.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect submitted tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(clientFn, outputFn),
		newTaskShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newTaskListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List submitted tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks()
			if err != nil {
				return err
			}

			headers := []string{"TASK_ID", "TYPE", "STATUS", "PAYLOAD", "CREATED"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{t.TaskID, t.Type, t.Status, formatValues(t.Payload), t.CreatedAt}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}
}

func newTaskShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show a task with its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			task, err := client.GetTask(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(task)
				return nil
			}

			out.Table(
				[]string{"TASK_ID", "TYPE", "STATUS", "PAYLOAD", "CREATED", "RESULTS"},
				[][]string{{
					task.TaskID, task.Type, task.Status, formatValues(task.Payload),
					task.CreatedAt, strconv.Itoa(len(task.Results)),
				}},
			)

			if len(task.Results) > 0 {
				printResults(out, task.Results)
			}
			return nil
		},
	}
}
