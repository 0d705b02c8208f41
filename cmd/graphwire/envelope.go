package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"xdao.co/graphwire/envelope"
)

func (a *app) envelopeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "Work with multipart messages",
	}
	cmd.AddCommand(a.envelopeSplitCmd())
	return cmd
}

func (a *app) envelopeSplitCmd() *cobra.Command {
	var outDir, contentType string
	cmd := &cobra.Command{
		Use:   "split [file]",
		Short: "List the parts of a message, or write them to a directory",
		Long: `Without --out, prints each part id with its content type and size.
With --out, writes the main part to Main and every other part to a file
named by its path-escaped id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.readInput(args)
			if err != nil {
				return err
			}
			mainPart, parts, err := envelope.Parse(body, contentType)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(parts))
			for id := range parts {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if outDir == "" {
				fmt.Fprintf(a.out, "%s\t%s\t%d\n", envelope.MainID, mainPart.ContentType, len(mainPart.Body))
				for _, id := range ids {
					fmt.Fprintf(a.out, "%s\t%d\n", id, len(parts[id]))
				}
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, envelope.MainID), []byte(mainPart.Body), 0o644); err != nil {
				return err
			}
			for _, id := range ids {
				if err := os.WriteFile(filepath.Join(outDir, url.PathEscape(id)), []byte(parts[id]), 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "Wrote %d parts to %s\n", len(ids)+1, outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write parts into")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Message content type; empty reads it from the body headers")
	return cmd
}
