package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/noah-isme/skp-companion/internal/dto"
)

func newSubmitCommand(c *cli) *cobra.Command {
	var (
		request   dto.ClaimSubmitRequest
		evidence  string
		assumeYes bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an activity claim, keeping it locally if the SKP service cannot take it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := evidenceFromPath(evidence)
			if err != nil {
				return err
			}

			confirmer := confirmerFor(assumeYes, cmd.InOrStdin(), cmd.ErrOrStderr())
			result, err := c.container.Submissions.Submit(cmd.Context(), request, file, "", confirmer)
			if result.Outcome != "" {
				if printErr := printJSON(cmd.OutOrStdout(), result); printErr != nil {
					return printErr
				}
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&request.Title, "title", "", "Activity title")
	flags.StringVar(&request.ActivityType, "type", "", "Activity type from the SKP catalog")
	flags.StringVar(&request.Date, "date", "", "Activity date (YYYY-MM-DD)")
	flags.StringVar(&request.Description, "description", "", "What the activity involved")
	flags.StringVar(&request.CompetencyArea, "competency", "", "Competency area")
	flags.IntVar(&request.ExpectedPoints, "points", 0, "Points expected for the activity")
	flags.StringVar(&request.Notes, "notes", "", "Notes for the reviewer")
	flags.StringVar(&evidence, "evidence", "", "Path to the evidence document (PDF, JPEG or PNG)")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "Proceed without asking when evidence cannot be uploaded")

	for _, name := range []string{"title", "type", "date", "description", "evidence"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func evidenceFromPath(path string) (*dto.EvidenceFile, error) {
	if path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("evidence file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("evidence file %s is a directory", path)
	}
	return &dto.EvidenceFile{
		FileName: filepath.Base(path),
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
