package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"copium-tutor/internal/pdfsplit"
	"copium-tutor/internal/pkg/pdfinspect"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "pdfsplit",
		Short:        "Split oversized PDFs into parts that fit the upload limit",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newSplitCmd(), newInspectCmd())
	return root
}

func newSplitCmd() *cobra.Command {
	var (
		maxBytes int
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "split <file.pdf>",
		Short: "Write page-range parts of a PDF, each at most --max-bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxBytes <= 0 {
				return fmt.Errorf("--max-bytes must be positive, got %d", maxBytes)
			}
			isPDF, err := pdfinspect.IsPDF(args[0])
			if err != nil {
				return err
			}
			if !isPDF {
				return fmt.Errorf("%s is not a pdf", args[0])
			}

			parts, err := pdfsplit.SplitFile(args[0], maxBytes, outDir)
			if err != nil {
				return err
			}
			for _, p := range parts {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxBytes, "max-bytes", pdfsplit.DefaultMaxBytes, "largest part size in bytes")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: a new temp directory)")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var withText bool
	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Print the page count and size of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			pages, err := pdfinspect.PageCountFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pages: %d\nbytes: %d\n", pages, info.Size())
			if !withText {
				return nil
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			text, err := pdfinspect.ExtractText(f)
			if err != nil {
				return fmt.Errorf("extract text failed: %w", err)
			}
			fmt.Fprintln(out, strings.TrimSpace(text))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withText, "text", false, "also print the extracted plain text")
	return cmd
}
