package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ayusman/kagebunshin/internal/gesture"
)

func (c *cli) datasetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Export, import or clear the recorded samples",
	}
	cmd.AddCommand(c.datasetExportCommand(), c.datasetImportCommand(), c.datasetClearCommand())
	return cmd
}

func (c *cli) datasetExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every sample as a JSON dataset (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd, nil); err != nil {
				return err
			}
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ds, err := s.Samples().Dataset()
			if err != nil {
				return fmt.Errorf("failed to read samples: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := ds.Export(w); err != nil {
				return err
			}

			pos, neg := ds.Counts()
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d %s and %d %s samples\n", pos, gesture.LabelCloneSign, neg, gesture.LabelNotSign)
			return nil
		},
	}
}

func (c *cli) datasetImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add the samples of a JSON dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd, nil); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ds, err := gesture.ImportDataset(f)
			if err != nil {
				return err
			}

			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id := uuid.NewString()
			if err := s.Samples().Import(id, ds); err != nil {
				return fmt.Errorf("failed to import samples: %w", err)
			}

			pos, neg := ds.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s and %d %s samples as session %s\n", pos, gesture.LabelCloneSign, neg, gesture.LabelNotSign, id)
			return nil
		},
	}
}

func (c *cli) datasetClearCommand() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd, nil); err != nil {
				return err
			}
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var n int64
			if session != "" {
				n, err = s.Samples().DeleteBySession(session)
			} else {
				n, err = s.Samples().DeleteAll()
			}
			if err != nil {
				return fmt.Errorf("failed to delete samples: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d samples\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only delete the samples of this recording session")
	return cmd
}
