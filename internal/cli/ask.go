package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/client"
	"docqa/internal/tui"
)

var (
	askServer    string
	askToken     string
	askQuestions []string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [document]",
	Short: "Ask questions about a document",
	Long: `Sends questions about a PDF (URL or local path on the server) to a
running docqa server. Without --question an interactive session opens.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askServer, "server", "http://localhost:8000", "docqa server base URL")
	askCmd.Flags().StringVar(&askToken, "token", "", "bearer token (defaults to $BEARER_TOKEN)")
	askCmd.Flags().StringArrayVarP(&askQuestions, "question", "q", nil, "question to ask (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output answers as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	document := args[0]
	token := askToken
	if token == "" {
		token = os.Getenv("BEARER_TOKEN")
	}
	if token == "" {
		return errors.New("bearer token required (--token or BEARER_TOKEN)")
	}
	c := client.New(askServer, token)

	if len(askQuestions) == 0 {
		_, err := tea.NewProgram(tui.New(c, document), tea.WithAltScreen()).Run()
		return err
	}

	answers, err := c.Ask(cmd.Context(), document, askQuestions)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	out := cmd.OutOrStdout()
	if askJSON {
		data, err := json.MarshalIndent(map[string][]string{"answers": answers}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answers: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	for i, q := range askQuestions {
		fmt.Fprintf(out, "Q: %s\nA: %s\n", q, answers[i])
		if i < len(askQuestions)-1 {
			fmt.Fprintln(out)
		}
	}
	return nil
}
