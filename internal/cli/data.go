package cli

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/happyhackingspace/lola/internal/markup"
	"github.com/spf13/cobra"
)

func (c *CLI) newDataCommand() *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Fetch and prepare parallel corpora",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	var downloadDest string
	downloadCmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download and extract a .tar.gz corpus archive",
		Args:  cobra.ExactArgs(1),
		Example: `  lola data download https://example.org/europarl-en-fr.tar.gz
  lola data download https://example.org/hansards.tar.gz --dest data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dataDownload(args[0], downloadDest)
		},
	}
	downloadCmd.Flags().StringVar(&downloadDest, "dest", "data", "Destination folder")

	tmxOpts := markup.DefaultTMXOptions()
	var prefix string
	importCmd := &cobra.Command{
		Use:   "import-tmx <file>",
		Short: "Convert a TMX translation memory into a pair of line-aligned files",
		Args:  cobra.ExactArgs(1),
		Example: `  lola data import-tmx memory.tmx
  lola data import-tmx memory.tmx --source-lang de --target-lang en --prefix data/corpus`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return importTMX(args[0], prefix, tmxOpts)
		},
	}
	importCmd.Flags().StringVar(&tmxOpts.SourceLang, "source-lang", tmxOpts.SourceLang, "Language of the source side")
	importCmd.Flags().StringVar(&tmxOpts.TargetLang, "target-lang", tmxOpts.TargetLang, "Language of the target side")
	importCmd.Flags().BoolVar(&tmxOpts.Lowercase, "lowercase", false, "Lowercase segments")
	importCmd.Flags().StringVar(&prefix, "prefix", "corpus", "Output prefix; writes <prefix>.<lang> for each side")

	languagesCmd := &cobra.Command{
		Use:   "languages <file>",
		Short: "List the languages present in a TMX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			doc, err := markup.LoadDocument(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			for _, lang := range markup.Languages(doc) {
				fmt.Println(lang)
			}
			return nil
		},
	}

	dataCmd.AddCommand(downloadCmd, importCmd, languagesCmd)
	return dataCmd
}

func dataDownload(url, dest string) error {
	slog.Info("Downloading corpus", "url", url)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download corpus: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download corpus: HTTP %d", resp.StatusCode)
	}

	count, err := extractTarGz(resp.Body, dest)
	if err != nil {
		return err
	}
	slog.Info("Corpus extracted", "files", count, "folder", dest)
	return nil
}

// extractTarGz unpacks regular files and directories under dest.
func extractTarGz(r io.Reader, dest string) (int, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	root := filepath.Clean(dest)
	tr := tar.NewReader(gr)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read tar: %w", err)
		}

		target := filepath.Join(root, hdr.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return count, fmt.Errorf("read tar: entry %q escapes %s", hdr.Name, dest)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return count, fmt.Errorf("create parent dir: %w", err)
			}
			f, err := os.Create(target)
			if err != nil {
				return count, fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return count, fmt.Errorf("write file %s: %w", target, err)
			}
			_ = f.Close()
			count++
		default:
			slog.Debug("Skipping archive entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
	return count, nil
}

func importTMX(path, prefix string, opts markup.TMXOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	pairs, err := markup.ReadTMX(f, opts)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("%s: no %s-%s translation units", path, opts.SourceLang, opts.TargetLang)
	}

	sourcePath := prefix + "." + opts.SourceLang
	targetPath := prefix + "." + opts.TargetLang
	if dir := filepath.Dir(prefix); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	src, err := os.Create(sourcePath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	tgt, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	defer func() { _ = tgt.Close() }()

	if err := markup.WriteParallel(pairs, src, tgt); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	if err := src.Close(); err != nil {
		return err
	}
	if err := tgt.Close(); err != nil {
		return err
	}
	slog.Info("TMX imported", "pairs", len(pairs), "source", sourcePath, "target", targetPath)
	return nil
}
