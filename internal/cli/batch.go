package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohmanhakim/fetchkit/internal/engine"
	"github.com/spf13/cobra"
)

func newBatchCommand() *cobra.Command {
	var (
		reqFlags  requestFlags
		inputFile string
		priority  string
	)
	batchCmd := &cobra.Command{
		Use:   "batch [url...]",
		Short: "Fetch many pages concurrently, highest priority first",
		Long: `Fetch many pages through a bounded worker pool. URLs come from the
arguments and from --input, a file with one "<url> [low|normal|high]" entry
per line. Blank lines and lines starting with # are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaultPriority, err := engine.ParsePriority(priority)
			if err != nil {
				return err
			}
			requests := make([]engine.FetchRequest, 0, len(args))
			for _, arg := range args {
				request, err := reqFlags.request(arg, defaultPriority)
				if err != nil {
					return err
				}
				requests = append(requests, request)
			}
			if inputFile != "" {
				f, err := os.Open(inputFile)
				if err != nil {
					return fmt.Errorf("error opening input file: %w", err)
				}
				fromFile, err := readBatchInput(f, &reqFlags, defaultPriority)
				f.Close()
				if err != nil {
					return err
				}
				requests = append(requests, fromFile...)
			}
			if len(requests) == 0 {
				return fmt.Errorf("no URLs given: pass URLs as arguments or use --input")
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			results, report := s.engine.ScrapeBatchReport(cmd.Context(), requests, s.cfg.Concurrency())
			out := cmd.OutOrStdout()
			for _, result := range results {
				written, err := s.write(result)
				if err != nil {
					// already recorded by the sink
					continue
				}
				if err := printWritten(out, result.URL(), written); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "batch %s: %d succeeded, %d failed\n", report.BatchID, report.Succeeded, report.Failed)
			return err
		},
	}
	reqFlags.bind(batchCmd)
	batchCmd.Flags().StringVar(&inputFile, "input", "", "file listing URLs, one per line")
	batchCmd.Flags().StringVar(&priority, "priority", "normal", "priority of URLs without one: low, normal or high")
	return batchCmd
}

func readBatchInput(r io.Reader, reqFlags *requestFlags, defaultPriority engine.Priority) ([]engine.FetchRequest, error) {
	var requests []engine.FetchRequest
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 2 {
			return nil, fmt.Errorf("input line %d: expected \"<url> [priority]\"", lineNo)
		}
		priority := defaultPriority
		if len(fields) == 2 {
			parsed, err := engine.ParsePriority(fields[1])
			if err != nil {
				return nil, fmt.Errorf("input line %d: %w", lineNo, err)
			}
			priority = parsed
		}
		request, err := reqFlags.request(fields[0], priority)
		if err != nil {
			return nil, fmt.Errorf("input line %d: %w", lineNo, err)
		}
		requests = append(requests, request)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return requests, nil
}
