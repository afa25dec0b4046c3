package cmd

import (
	"fmt"

	"github.com/rohmanhakim/fetchkit/internal/engine"
	"github.com/spf13/cobra"
)

func newFetchCommand() *cobra.Command {
	var (
		reqFlags requestFlags
		toStdout bool
	)
	fetchCmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch one page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := reqFlags.request(args[0], engine.PriorityNormal)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.engine.Fetch(cmd.Context(), request)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if toStdout {
				_, err = fmt.Fprintln(out, result.Content())
				return err
			}
			written, err := s.write(result)
			if err != nil {
				return err
			}
			return printWritten(out, result.URL(), written)
		},
	}
	reqFlags.bind(fetchCmd)
	fetchCmd.Flags().BoolVar(&toStdout, "print", false, "write the content to stdout instead of the output directory")
	return fetchCmd
}
