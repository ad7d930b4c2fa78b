package client

import (
	"strings"

	"github.com/cloo-solutions/ragpipe/internal/api/handlers"
	"github.com/spf13/cobra"
)

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Retrieves the most relevant chunks, builds the augmented prompt and asks the
chat model. Prints the response, token usage, cost, elapsed time and the
sources the answer was grounded on.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "))
		},
	}

	return cmd
}

func runAsk(cmd *cobra.Command, question string) error {
	ctx := cmd.Context()

	var resp *handlers.AskResponse
	if remote := NewAPIClientWithCmd(cmd); remote != nil {
		var err error
		resp, err = remote.Ask(ctx, question)
		if err != nil {
			return err
		}
	} else {
		p, err := openPipeline(ctx, cmd, false)
		if err != nil {
			return err
		}
		defer p.Close()

		answer, err := p.Answer.Answer(ctx, question)
		if err != nil {
			return err
		}
		resp = handlers.NewAskResponse(answer)
	}

	if outputJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printAnswer(cmd.OutOrStdout(), resp)
	return nil
}
