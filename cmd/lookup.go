package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/opcheck/internal/utils"
	"github.com/sw33tLie/opcheck/pkg/batch"
	"github.com/sw33tLie/opcheck/pkg/export"
	"github.com/sw33tLie/opcheck/pkg/phone"
	"github.com/sw33tLie/opcheck/pkg/render"
	"github.com/sw33tLie/opcheck/pkg/results"
	"github.com/sw33tLie/opcheck/pkg/storage"
)

// lookupCmd implements: opcheck lookup [numbers...]
// Numbers can be given as arguments, read from --file, or piped on stdin.
var lookupCmd = &cobra.Command{
	Use:   "lookup [numbers...]",
	Short: "Look up the operator of one or more phone numbers",
	Example: `  opcheck lookup "+46701234567, 08123456, 0701234567"
  opcheck lookup -f numbers.txt --filter Telia --csv out.csv
  cat numbers.txt | opcheck lookup --copy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		tokens, err := phone.ParseInput(text)
		if err != nil {
			return err
		}

		proxy, _ := cmd.Flags().GetString("proxy")
		fetcher, err := cfg.NewFetcher(proxy)
		if err != nil {
			return err
		}

		set, err := batch.Lookup(cmd.Context(), fetcher, tokens, batch.Options{
			ChunkSize: cfg.ChunkSize,
			Log:       utils.Log,
			OnChunk: func(i, n, got int) {
				utils.Log.Debugf("Chunk %d/%d done, %d entries", i+1, n, got)
			},
		})
		if err != nil {
			return err
		}

		session := results.NewSession()
		session.Reset(set)
		if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
			session.Toggle(filter)
		}
		fmt.Print(render.Terminal(session.View(), render.ThemeFor(cfg.Theme)))

		if err := writeExports(cmd, set); err != nil {
			return err
		}

		if useDB, _ := cmd.Flags().GetBool("db"); useDB {
			id, err := saveLookup(cmd, cfg.DBPath, set)
			if err != nil {
				return err
			}
			utils.Log.Infof("Saved lookup %s", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringP("file", "f", "", "Read numbers from a file (\"-\" for stdin)")
	lookupCmd.Flags().String("filter", "", "Only show numbers served by this operator")
	lookupCmd.Flags().Bool("copy", false, "Copy the results to the clipboard")
	lookupCmd.Flags().String("csv", "", "Write the results as CSV to this path")
	lookupCmd.Flags().String("txt", "", "Write the results as plain text to this path")
	lookupCmd.Flags().String("xlsx", "", "Write the results as an Excel workbook to this path")
	lookupCmd.Flags().Bool("db", false, "Save the lookup to the history database")
	lookupCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: opcheck.sqlite in CWD)")
	lookupCmd.Flags().String("backend", "", "Operator backend: remote or offline")
	lookupCmd.Flags().Int("chunk-size", 0, "Numbers per lookup request (max 2000)")
	lookupCmd.Flags().Duration("timeout", 0, "Timeout per lookup request")
}

// readInput gathers numbers from args, --file and a piped stdin, one source
// per line.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var parts []string
	if len(args) > 0 {
		parts = append(parts, strings.Join(args, ","))
	}

	file, _ := cmd.Flags().GetString("file")
	switch {
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		parts = append(parts, string(b))
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("could not read numbers: %w", err)
		}
		parts = append(parts, string(b))
	case len(args) == 0 && stdinIsPipe():
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(b))
	}

	return strings.Join(parts, "\n"), nil
}

func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

func writeExports(cmd *cobra.Command, set *results.Set) error {
	if set.Empty() {
		return nil
	}

	if copyFlag, _ := cmd.Flags().GetBool("copy"); copyFlag {
		if _, err := export.Copy(set); err != nil {
			return errors.New("Failed to copy to clipboard")
		}
		utils.Log.Info("Results copied to clipboard")
	}

	if path, _ := cmd.Flags().GetString("txt"); path != "" {
		if err := os.WriteFile(path, []byte(export.Text(set)+"\n"), 0o644); err != nil {
			return err
		}
	}

	writers := []struct {
		flag string
		fn   func(*results.Set) ([]byte, error)
	}{
		{"csv", export.CSV},
		{"xlsx", export.XLSX},
	}
	for _, w := range writers {
		path, _ := cmd.Flags().GetString(w.flag)
		if path == "" {
			continue
		}
		data, err := w.fn(set)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		utils.Log.Debugf("Wrote %s", path)
	}
	return nil
}

func saveLookup(cmd *cobra.Command, dbPath string, set *results.Set) (string, error) {
	lock, err := utils.NewDBLock(dbPath)
	if err != nil {
		return "", err
	}
	if err := lock.Lock(cmd.Context()); err != nil {
		return "", err
	}
	defer lock.Unlock()

	db, err := storage.Open(dbPath, storage.DefaultDBTimeout)
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.SaveLookup(cmd.Context(), set)
}
