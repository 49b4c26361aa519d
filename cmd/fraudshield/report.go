package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pedro-hbl/fraudshield-stream/internal/render"
)

func reportCmd() *cobra.Command {
	var (
		input     string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render charts and a summary from a recorded session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := render.ReadSessionFile(input)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			render.SessionSummary(out, session.Session)
			if len(session.Archive) > 0 {
				fmt.Fprintf(out, "Archive: %d written, %d failed, %d dropped\n",
					session.Archive["written"], session.Archive["failed"], session.Archive["dropped"])
			}

			files, err := render.Report(outputDir, session)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(out, "Wrote %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "session.json", "session file written by watch --session-out")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "report", "directory for the report files")

	return cmd
}
