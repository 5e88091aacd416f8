package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/config"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/store/sqlite"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage monitored registration pages",
}

var (
	addLabel    string
	addURL      string
	addCheval   string
	addCavalier string
	addInterval int64
	addHot      int64
	addHotFrom  string
	addHotTo    string
)

var targetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a page to watch",
	Example: `  ffe-pre-engage target add \
    --label "CSO Tours - Ep 3" \
    --url https://ffecompet.ffe.com/concours/202512345 \
    --interval 120`,
	RunE: func(_ *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p := domain.AddTargetPayload{Label: addLabel, URL: addURL}
		if addCheval != "" {
			p.Cheval = &addCheval
		}
		if addCavalier != "" {
			p.Cavalier = &addCavalier
		}
		if addInterval > 0 {
			p.IntervalNormalSec = &addInterval
		}
		if addHot > 0 {
			p.IntervalHotSec = &addHot
		}
		if addHotFrom != "" {
			p.HotFrom = &addHotFrom
		}
		if addHotTo != "" {
			p.HotTo = &addHotTo
		}

		id, err := st.AddTarget(context.Background(), p)
		if err != nil {
			return err
		}
		fmt.Printf("added target %d\n", id)
		return nil
	},
}

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched pages and their last-known state",
	RunE: func(_ *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		targets, err := st.ListTargets(context.Background())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tSTATUS\tSLOTS\tURL")
		for _, t := range targets {
			slots := "-"
			if t.LastSlots != nil {
				slots = strconv.Itoa(*t.LastSlots)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Label, t.LastStatus, slots, t.URL)
		}
		return w.Flush()
	},
}

var targetRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a watched page and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad id %q", args[0])
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteTarget(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("removed target %d\n", id)
		return nil
	},
}

func openStore() (*sqlite.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return sqlite.New(context.Background(), cfg.DBPath)
}

func init() {
	targetAddCmd.Flags().StringVar(&addLabel, "label", "", "display name (required)")
	targetAddCmd.Flags().StringVar(&addURL, "url", "", "page to poll (required)")
	targetAddCmd.Flags().StringVar(&addCheval, "cheval", "", "horse name")
	targetAddCmd.Flags().StringVar(&addCavalier, "cavalier", "", "rider name")
	targetAddCmd.Flags().Int64Var(&addInterval, "interval", 0, "polling interval in seconds (floor 15, default 300)")
	targetAddCmd.Flags().Int64Var(&addHot, "hot-interval", 0, "hot-window interval in seconds (floor 10, default 45; not yet applied)")
	targetAddCmd.Flags().StringVar(&addHotFrom, "hot-from", "", "hot window start, HH:MM (stored, not yet applied)")
	targetAddCmd.Flags().StringVar(&addHotTo, "hot-to", "", "hot window end, HH:MM (stored, not yet applied)")
	_ = targetAddCmd.MarkFlagRequired("label")
	_ = targetAddCmd.MarkFlagRequired("url")

	targetCmd.AddCommand(targetAddCmd, targetListCmd, targetRmCmd)
	rootCmd.AddCommand(targetCmd)
}
