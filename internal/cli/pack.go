package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/logicossoftware/go-hssp"
	"github.com/logicossoftware/go-hssp/internal/log"
	"github.com/spf13/cobra"
)

type packOptions struct {
	out      string
	mainFile string
}

func newPackCommand(a *app) *cobra.Command {
	opts := &packOptions{}

	cmd := &cobra.Command{
		Use:   "pack <dir>",
		Short: "Pack a directory into an archive",
		Example: `  hssp pack ./site -o site.hssp --compression zstd
  hssp pack ./site -o site.hssp --split 3          # site.hssp.001 to site.hssp.003
  hssp pack ./site -o site.hssp --version 2 --main index.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPack(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.out, "out", "o", "archive.hssp", "output file, or volume name prefix with --split")
	flags.StringVar(&opts.mainFile, "main", "", "archive path to mark as the main file")
	flags.Int("version", int(hssp.LatestVersion), "archive version (1-5)")
	flags.String("compression", "", "compression algorithm: "+strings.Join(hssp.DefaultRegistry().Names(), ", "))
	flags.Int("level", hssp.DefaultCompressionLevel, "compression level (0-9)")
	flags.String("comment", "", "archive comment, up to 16 bytes (v4 and v5)")
	flags.Int("split", 0, "number of volumes to split the archive into")
	for _, key := range []string{"version", "compression", "level", "comment", "split"} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	_ = cmd.RegisterFlagCompletionFunc("compression", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return hssp.DefaultRegistry().Names(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (a *app) runPack(cmd *cobra.Command, dir string, opts *packOptions) error {
	files, err := collectTree(dir)
	if err != nil {
		return fmt.Errorf("collect %s: %w", dir, err)
	}
	if opts.mainFile != "" {
		if err := markMainFile(files, opts.mainFile); err != nil {
			return err
		}
	}

	if n := a.v.GetInt("split"); n != 0 {
		vols, err := hssp.CreateSplit(files, n, a.writeOptions()...)
		if err != nil {
			return fmt.Errorf("pack: %w", err)
		}
		for i, vol := range vols {
			name := volumeName(opts.out, i)
			if err := os.WriteFile(name, vol, 0o644); err != nil {
				return fmt.Errorf("write volume: %w", err)
			}
			log.Debug().Str("file", name).Int("bytes", len(vol)).Msg("wrote volume")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Packed %d entries into %d volumes %s\n", len(files), len(vols), volumeName(opts.out, 0))
		return nil
	}

	buf, err := hssp.Create(files, a.writeOptions()...)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	if err := os.WriteFile(opts.out, buf, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Packed %d entries into %s (%d bytes)\n", len(files), opts.out, len(buf))
	return nil
}

func markMainFile(files []hssp.File, path string) error {
	for i := range files {
		if files[i].Path == path && !files[i].Attributes.IsDirectory {
			files[i].Attributes.IsMainFile = true
			return nil
		}
	}
	return fmt.Errorf("main file %q is not in the packed directory", path)
}

// volumeName numbers volumes from 1: prefix.001, prefix.002, ...
func volumeName(prefix string, i int) string {
	return fmt.Sprintf("%s.%03d", prefix, i+1)
}
