package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/opcheck/pkg/render"
	"github.com/sw33tLie/opcheck/pkg/results"
	"github.com/sw33tLie/opcheck/pkg/storage"
)

// historyCmd lists saved lookups.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List lookups saved with --db",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		lookups, err := db.ListLookups(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(lookups) == 0 {
			fmt.Println("No lookups saved yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tNUMBERS\tRESOLVED\t")
		for _, l := range lookups {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t\n", shortID(l.ID), l.CreatedAt.Local().Format("2006-01-02 15:04"), l.Total, l.Resolved)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved lookup (any unambiguous id prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		_, set, err := db.LoadLookup(cmd.Context(), args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no saved lookup matches %q", args[0])
		}
		if err != nil {
			return err
		}

		session := results.NewSession()
		session.Reset(set)
		if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
			session.Toggle(filter)
		}
		fmt.Print(render.Terminal(session.View(), currentTheme()))
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count saved numbers per operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "OPERATOR\tNUMBERS\tLOOKUPS\t")

		var total int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t\n", s.Operator, s.NumberCount, s.LookupCount)
			total += s.NumberCount
		}

		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t\t\n", total)

		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)

	historyCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: opcheck.sqlite in CWD)")
	historyCmd.Flags().Int("limit", 20, "Maximum number of lookups to list")
	historyShowCmd.Flags().String("filter", "", "Only show numbers served by this operator")
}

func openHistory(cmd *cobra.Command) (*storage.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", cfg.DBPath)
	}
	return storage.Open(cfg.DBPath, storage.DefaultDBTimeout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
