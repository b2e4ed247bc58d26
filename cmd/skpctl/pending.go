package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/noah-isme/skp-companion/internal/dto"
)

func newPendingCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect and manage claims kept locally",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List locally kept claims",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				entries, err := c.container.Queue.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.NewPendingListResponse(entries))
			},
		},
		&cobra.Command{
			Use:   "retry",
			Short: "Replay every kept claim to the SKP service",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				report, err := c.container.Queue.RetryAll(cmd.Context(), "")
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Drop one kept claim",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.container.Queue.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return err
			},
		},
		newPendingExportCommand(c),
		newPendingClearCommand(c),
	)
	return cmd
}

func newPendingExportCommand(c *cli) *cobra.Command {
	var (
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write kept claims to a file for manual processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := c.container.Queue.ExportAll(cmd.Context(), dto.ExportFormat(format))
			if err != nil {
				return err
			}

			dir := outDir
			if dir == "" {
				dir = c.container.Config.ExportDir
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(dir, artifact.FileName)
			if err := os.WriteFile(path, artifact.Content, 0o600); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d claim(s) to %s\n", artifact.Count, path)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", string(dto.ExportJSON), "Export format (json or text)")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write the export to")
	return cmd
}

func newPendingClearCommand(c *cli) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every kept claim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleared, err := c.container.Queue.ClearAll(cmd.Context(), confirmerFor(assumeYes, cmd.InOrStdin(), cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d claim(s)\n", cleared)
			return err
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
