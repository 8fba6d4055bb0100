package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sherifkozman/red-council/internal/campaign"
	"github.com/sherifkozman/red-council/internal/history"
	"github.com/sherifkozman/red-council/internal/types"
)

var (
	historyListLimit  int
	historyListStatus string
	historyPruneKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Review past campaigns",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List finished campaigns, most recent first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one campaign's full results",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest records",
	RunE:  runHistoryPrune,
}

func init() {
	historyListCmd.Flags().IntVar(&historyListLimit, "limit", 20, "Maximum records to show")
	historyListCmd.Flags().StringVar(&historyListStatus, "status", "", "Only show campaigns with this status")
	historyPruneCmd.Flags().IntVar(&historyPruneKeep, "keep", 20, "Number of records to keep")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.history.List(ctx, history.Filter{
		Status: campaign.Status(historyListStatus),
		Limit:  historyListLimit,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Println("No campaign history")
		return nil
	}

	bold := color.New(color.Bold)
	cmd.Printf("%s\n", bold.Sprintf("%-36s %-12s %-12s %-10s %s", "ID", "TARGET", "STATUS", "RESULT", "FINISHED"))
	for _, rec := range records {
		result := fmt.Sprintf("%d/%d", rec.SuccessfulAttacks, rec.TotalAttacks)
		cmd.Printf("%-36s %-12s %-12s %-10s %s\n",
			rec.ID, rec.Target, rec.Status, result,
			rec.FinishedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := types.ParseID(args[0])
	if err != nil {
		return err
	}

	rec, err := a.history.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return types.NewError(types.CAMPAIGN_NOT_FOUND,
			fmt.Sprintf("no history record %s", args[0]))
	}

	cmd.Printf("Session:    %s\n", rec.SessionID)
	cmd.Printf("Target:     %s", rec.Target)
	if rec.Model != "" {
		cmd.Printf(" (%s)", rec.Model)
	}
	cmd.Println()
	cmd.Printf("Status:     %s\n", rec.Status)
	cmd.Printf("Attacks:    %d total, %d successful, %d resisted\n",
		rec.TotalAttacks, rec.SuccessfulAttacks, rec.FailedAttacks)
	cmd.Printf("Duration:   %ds\n", rec.DurationSeconds)
	cmd.Printf("Finished:   %s\n", rec.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	if len(rec.Results) > 0 {
		cmd.Println()
		printResults(cmd, rec.Results)
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.history.Prune(ctx, historyPruneKeep)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d records, kept the newest %d\n", removed, historyPruneKeep)
	return nil
}
