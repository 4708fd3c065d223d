// followupctl — инструмент командной строки для followup API.
//
// Использование:
//
//	followupctl [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	lead        Управление leads
//	test-email  Создать test lead и отправить письмо
//	pass        Запуск и просмотр проходов рассылки
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/followup/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "followupctl",
		Short:         "followupctl — manage leads and follow-up passes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("FOLLOWUP_API_URL"); v != "" {
		defaultURL = v
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewLeadCmd(clientFn, outputFn),
		cli.NewTestEmailCmd(clientFn, outputFn),
		cli.NewPassCmd(clientFn, outputFn),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
