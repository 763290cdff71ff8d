package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/logicossoftware/go-hssp"
	"github.com/spf13/cobra"
)

func newInspectCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the header and index of an archive",
		Long:  "Show the header and index of an archive. Checksum and password problems are reported, not treated as errors.",
		Example: `  hssp inspect site.hssp
  hssp inspect site.hssp --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rep, err := hssp.Metadata(buf, a.readOptions()...)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "text", "output format (json or text)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func printReport(w io.Writer, rep *hssp.Report) {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	fmt.Fprintf(w, "Version:      %s\n", rep.Version)
	if rep.Generator != "" {
		fmt.Fprintf(w, "Generator:    %s\n", rep.Generator)
	}
	if rep.Comment != "" {
		fmt.Fprintf(w, "Comment:      %s\n", rep.Comment)
	}
	fmt.Fprintf(w, "Files:        %d\n", rep.FileCount)
	fmt.Fprintf(w, "Checksum:     %#08x (valid: %s)\n", rep.Checksum.Stored, yesNo(rep.Checksum.Valid))
	fmt.Fprintf(w, "Encrypted:    %s\n", yesNo(rep.Encrypted))
	if rep.Encrypted {
		fmt.Fprintf(w, "Password:     supplied: %s, correct: %s\n", yesNo(rep.Password.Supplied), yesNo(rep.Password.Correct))
	}
	switch {
	case rep.Compression != "":
		fmt.Fprintf(w, "Compression:  %s (%s)\n", rep.Compression, rep.CompressionCode)
	case rep.CompressionCode != "":
		fmt.Fprintf(w, "Compression:  none (%s)\n", rep.CompressionCode)
	}
	if s := rep.Split; s.Split {
		fmt.Fprintf(w, "Split:        volume %d, offset %d, %d files in set, first: %s, last: %s\n",
			s.ID+1, s.Offset, s.TotalFileCount, yesNo(s.IsFirst), yesNo(s.IsLast))
	}
	if rep.IndexError != "" {
		fmt.Fprintf(w, "Index:        unreadable: %s\n", rep.IndexError)
		return
	}
	for _, e := range rep.Entries {
		kind, marker := "-", ""
		if e.Attributes.IsDirectory {
			kind = "d"
		}
		if e.Attributes.IsMainFile {
			marker = " (main)"
		}
		fmt.Fprintf(w, "  %s %04o %10d  %s%s\n", kind, e.Attributes.Permissions, e.Size, e.Path, marker)
	}
}

// VerifyResult is the JSON document printed by the verify command.
type VerifyResult struct {
	Valid  bool         `json:"valid"`
	Error  string       `json:"error,omitempty"`
	Report *hssp.Report `json:"report,omitempty"`
	Files  []FileDigest `json:"files,omitempty"`
}

// FileDigest describes one extracted entry.
type FileDigest struct {
	Path      string `json:"path"`
	Directory bool   `json:"directory,omitempty"`
	Size      int    `json:"size"`
	SHA256    string `json:"sha256,omitempty"`
}

var errInvalidArchive = errors.New("archive is invalid")

func newVerifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <archive>",
		Short: "Fully decode an archive and print a JSON verdict",
		Long:  "Fully decode an archive and print a JSON verdict with a SHA-256 digest per file. Exits non-zero when the archive cannot be decoded.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res := verify(buf, a.readOptions())
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("%s: %w", args[0], errInvalidArchive)
			}
			return nil
		},
	}
	return cmd
}

func verify(buf []byte, opts []hssp.ReadOption) VerifyResult {
	var res VerifyResult
	if rep, err := hssp.Metadata(buf, opts...); err == nil {
		res.Report = rep
	}
	arc, err := hssp.Parse(buf, opts...)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Valid = true
	if res.Report == nil {
		res.Report = &arc.Report
	}
	for _, f := range arc.Files {
		d := FileDigest{Path: f.Path, Directory: f.Attributes.IsDirectory, Size: len(f.Contents)}
		if !d.Directory {
			sum := sha256.Sum256(f.Contents)
			d.SHA256 = hex.EncodeToString(sum[:])
		}
		res.Files = append(res.Files, d)
	}
	return res
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
