package cmd

import (
	"fmt"
	"io"

	"github.com/rohmanhakim/fetchkit/internal/storage"
)

func printWritten(out io.Writer, resultUrl string, written storage.WriteResult) error {
	if !written.Written() {
		_, err := fmt.Fprintf(out, "%s\t%s (dry run)\n", resultUrl, written.Path())
		return err
	}
	_, err := fmt.Fprintf(out, "%s\t%s\n", resultUrl, written.Path())
	return err
}
