package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMapCommand() *cobra.Command {
	var limit int
	mapCmd := &cobra.Command{
		Use:   "map <url>",
		Short: "List the URLs of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := parseTargetURL(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			links, err := s.engine.MapSite(cmd.Context(), site, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, link := range links {
				if _, err := fmt.Fprintln(out, link); err != nil {
					return err
				}
			}
			return nil
		},
	}
	mapCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of URLs, 0 for no limit")
	return mapCmd
}
