package cli

import "github.com/spf13/cobra"

// NewPassCmd создаёт группу команд для проходов рассылки.
func NewPassCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pass",
		Short: "Run or inspect follow-up passes",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run a follow-up pass now and wait for it",
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := clientFn().RunPass(cmd.Context())
				if err != nil {
					return err
				}
				outputFn().Pass(*res)
				return nil
			},
		},
		&cobra.Command{
			Use:   "last",
			Short: "Show the last completed pass",
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := clientFn().LastPass(cmd.Context())
				if err != nil {
					return err
				}
				outputFn().Pass(*res)
				return nil
			},
		},
	)

	return cmd
}

// NewTestEmailCmd создаёт команду test-email.
func NewTestEmailCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "test-email EMAIL",
		Short: "Create a 1-minute test lead and send it a welcome email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := clientFn().TestLeadEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			if res.EmailSent {
				out.Notice("Test lead created and email sent to %s", res.Lead.Email)
			} else {
				out.Warn("test lead created but email was not sent: %s", res.Error)
			}
			out.Lead(res.Lead, res)
			return nil
		},
	}
}
