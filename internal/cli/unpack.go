package cli

import (
	"fmt"
	"os"

	"github.com/logicossoftware/go-hssp"
	"github.com/spf13/cobra"
)

func newUnpackCommand(a *app) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:     "unpack <archive>",
		Short:   "Extract an archive into a directory",
		Example: `  hssp unpack site.hssp -o ./site --password secret`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			arc, err := hssp.Parse(buf, a.readOptions()...)
			if err != nil {
				return fmt.Errorf("unpack %s: %w", args[0], err)
			}
			n, err := writeTree(outDir, arc.Files)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d files from %s (%s) into %s\n", n, args[0], arc.Report.Version, outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "output directory")
	return cmd
}

func newJoinCommand(a *app) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:     "join <volume>...",
		Short:   "Reassemble and extract the volumes of a split archive",
		Example: `  hssp join site.hssp.001 site.hssp.002 site.hssp.003 -o ./site`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vols := make([][]byte, len(args))
			for i, name := range args {
				b, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				vols[i] = b
			}
			files, err := hssp.Join(vols, a.readOptions()...)
			if err != nil {
				return fmt.Errorf("join: %w", err)
			}
			n, err := writeTree(outDir, files)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d files from %d volumes into %s\n", n, len(vols), outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "output directory")
	return cmd
}
