package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSubmitCmd создаёт группу команд для отправки задач.
func NewSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a task",
	}

	cmd.AddCommand(
		newSubmitConvertCmd(clientFn, outputFn),
		newSubmitInterestCmd(clientFn, outputFn),
	)

	return cmd
}

func newSubmitConvertCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req ConvertCurrencyRequest

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an amount between currencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(clientFn(), outputFn(), "convert_currency", req)
		},
	}

	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "Amount to convert")
	cmd.Flags().StringVar(&req.FromCurrency, "from", "", "Source currency code")
	cmd.Flags().StringVar(&req.ToCurrency, "to", "", "Target currency code")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func newSubmitInterestCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CalculateInterestRequest

	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Calculate simple interest for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(clientFn(), outputFn(), "calculate_interest", req)
		},
	}

	cmd.Flags().Float64Var(&req.Principal, "principal", 0, "Principal amount")
	cmd.Flags().Float64Var(&req.AnnualRate, "rate", 0, "Annual rate in percent")
	cmd.Flags().Float64Var(&req.Days, "days", 0, "Period length in days")
	cmd.MarkFlagRequired("principal")
	cmd.MarkFlagRequired("rate")
	cmd.MarkFlagRequired("days")

	return cmd
}

func submit(client *Client, out *Output, taskType string, payload any) error {
	taskID, err := client.SubmitTask(taskType, payload)
	if err != nil {
		return err
	}

	out.Success(fmt.Sprintf("Task submitted: %s", taskID))
	out.Print(
		[]string{"TASK_ID", "TYPE"},
		[][]string{{taskID, taskType}},
		map[string]string{"task_id": taskID, "type": taskType},
	)
	return nil
}
