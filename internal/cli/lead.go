package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewLeadCmd создаёт группу команд для управления leads.
func NewLeadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Manage leads",
	}

	cmd.AddCommand(
		newLeadListCmd(clientFn, outputFn),
		newLeadImportCmd(clientFn, outputFn),
		newLeadShowCmd(clientFn, outputFn),
		newLeadStatusCmd("pause", "Stop follow-ups for a lead", "paused", clientFn, outputFn),
		newLeadStatusCmd("resume", "Resume follow-ups for a lead", "active", clientFn, outputFn),
		newLeadStatusCmd("complete", "Mark a lead as completed", "completed", clientFn, outputFn),
		newLeadDeleteCmd(clientFn, outputFn),
		newLeadPurgeCmd(clientFn, outputFn),
	)

	return cmd
}

func newLeadListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListLeadsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			leads, err := clientFn().ListLeads(cmd.Context(), opts)
			if err != nil {
				return err
			}

			outputFn().Leads(leads, nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (active, paused, completed)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max leads to return")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Leads to skip")

	return cmd
}

func newLeadImportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		file     string
		interval int
	)

	cmd := &cobra.Command{
		Use:   "import [EMAIL...]",
		Short: "Import leads from arguments or a file (one address per line)",
		RunE: func(cmd *cobra.Command, args []string) error {
			emails := append([]string(nil), args...)

			if file != "" {
				fromFile, err := readEmails(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				emails = append(emails, fromFile...)
			}
			if len(emails) == 0 {
				return errors.New("no addresses given: pass them as arguments or with --file")
			}

			res, err := clientFn().ImportLeads(cmd.Context(), emails, interval)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Notice("Imported %d leads", res.Imported)
			out.Leads(res.Leads, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File with addresses, '-' for stdin")
	cmd.Flags().IntVar(&interval, "interval", 0, "Minutes between follow-ups (default 10)")

	return cmd
}

// readEmails читает адреса по одному на строку. Пустые строки и строки,
// начинающиеся с '#', пропускаются.
func readEmails(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var emails []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		emails = append(emails, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read addresses: %w", err)
	}
	return emails, nil
}

func newLeadShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show lead details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lead, err := clientFn().GetLead(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			outputFn().Lead(*lead, nil)
			return nil
		},
	}
}

func newLeadStatusCmd(use, short, status string, clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lead, err := clientFn().SetLeadStatus(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Notice("Lead %s is now %s", lead.ID, lead.Status)
			out.Lead(*lead, nil)
			return nil
		},
	}
}

func newLeadDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteLead(cmd.Context(), args[0]); err != nil {
				return err
			}
			outputFn().Notice("Lead deleted: %s", args[0])
			return nil
		},
	}
}

func newLeadPurgeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete all leads without --yes")
			}

			n, err := clientFn().DeleteAllLeads(cmd.Context())
			if err != nil {
				return err
			}
			outputFn().Notice("Deleted %d leads", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion of all leads")

	return cmd
}
