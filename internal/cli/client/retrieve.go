package client

import (
	"strings"

	"github.com/cloo-solutions/ragpipe/internal/api/handlers"
	"github.com/cloo-solutions/ragpipe/internal/cli"
	"github.com/spf13/cobra"
)

// RetrieveCmd creates the retrieve command.
func RetrieveCmd() *cobra.Command {
	var (
		req    handlers.RetrieveRequest
		lambda float32
		show   int
	)

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Show the chunks a query retrieves",
		Long:  "Runs only the retrieval step and prints the source and the beginning of each retrieved chunk.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = strings.Join(args, " ")
			if cmd.Flags().Changed("lambda") {
				req.Lambda = &lambda
			}
			return runRetrieve(cmd, req, show)
		},
	}

	cmd.Flags().StringVarP(&req.SearchType, "search-type", "s", "", "similarity or mmr (default RAGPIPE_SEARCH_TYPE)")
	cmd.Flags().IntVarP(&req.K, "k", "k", 0, "Number of chunks to retrieve (default RAGPIPE_K)")
	cmd.Flags().IntVar(&req.FetchK, "fetch-k", 0, "MMR candidate pool size (default RAGPIPE_FETCH_K)")
	cmd.Flags().Float32Var(&lambda, "lambda", 0, "MMR relevance/diversity balance in [0,1] (default RAGPIPE_LAMBDA)")
	cmd.Flags().IntVarP(&show, "show", "n", 3, "Number of retrieved chunks to print, 0 for all")
	cli.BindEnv(cmd, "search-type", "RAGPIPE_SEARCH_TYPE")
	cli.BindEnv(cmd, "k", "RAGPIPE_K")
	cli.BindEnv(cmd, "fetch-k", "RAGPIPE_FETCH_K")
	cli.BindEnv(cmd, "lambda", "RAGPIPE_LAMBDA")

	return cmd
}

func runRetrieve(cmd *cobra.Command, req handlers.RetrieveRequest, show int) error {
	ctx := cmd.Context()

	var resp *handlers.RetrieveResponse
	if remote := NewAPIClientWithCmd(cmd); remote != nil {
		var err error
		resp, err = remote.Retrieve(ctx, req)
		if err != nil {
			return err
		}
	} else {
		p, err := openPipeline(ctx, cmd, false)
		if err != nil {
			return err
		}
		defer p.Close()

		opts := req.Apply(p.Retriever.SearchOptions())
		result, err := p.Retriever.RetrieveWith(ctx, req.Query, opts)
		if err != nil {
			return err
		}
		resp = handlers.NewRetrieveResponse(req.Query, opts.Type, result)
	}

	if outputJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printRetrieval(cmd.OutOrStdout(), resp, show)
	return nil
}
