package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sherifkozman/red-council/internal/campaign"
	"github.com/sherifkozman/red-council/internal/history"
	"github.com/sherifkozman/red-council/internal/template"
	"github.com/sherifkozman/red-council/internal/types"
)

var (
	campaignTemplates []string
	campaignCategory  string
	campaignSession   string
	campaignDelay     time.Duration
	campaignDelaySet  bool
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run and manage attack campaigns",
}

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a new campaign against the configured target",
	Long: `Run a campaign that executes the selected attack templates one at a
time against the configured target. Progress is persisted after every attack,
so an interrupted campaign can be picked up again with 'campaign resume'.

Examples:
  # Attack with every enabled template
  redcouncil campaign run

  # Attack with specific templates, in order
  redcouncil campaign run --template jailbreak-roleplay-dan --template injection-system-prompt-leak

  # Attack with one category, pausing two seconds between attacks
  redcouncil campaign run --category jailbreak --delay 2s`,
	RunE: runCampaignRun,
}

var campaignResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused or interrupted campaign",
	RunE:  runCampaignResume,
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted state of a campaign",
	RunE:  runCampaignStatus,
}

var campaignResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard a campaign's persisted state",
	RunE:  runCampaignReset,
}

func init() {
	campaignRunCmd.Flags().StringArrayVar(&campaignTemplates, "template", nil, "Template id to run (repeatable, ordered)")
	campaignRunCmd.Flags().StringVar(&campaignCategory, "category", "", "Run every enabled template in this category")
	campaignRunCmd.Flags().DurationVar(&campaignDelay, "delay", 0, "Delay between attacks (overrides settings)")
	campaignRunCmd.Flags().StringVar(&campaignSession, "session", "", "Session id for the persisted snapshot")

	campaignResumeCmd.Flags().StringVar(&campaignSession, "session", "default", "Session id of the campaign to resume")
	campaignStatusCmd.Flags().StringVar(&campaignSession, "session", "default", "Session id of the campaign to inspect")
	campaignResetCmd.Flags().StringVar(&campaignSession, "session", "default", "Session id of the campaign to reset")

	campaignCmd.AddCommand(campaignRunCmd)
	campaignCmd.AddCommand(campaignResumeCmd)
	campaignCmd.AddCommand(campaignStatusCmd)
	campaignCmd.AddCommand(campaignResetCmd)
}

func runCampaignRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := selectTemplateIDs(ctx, a)
	if err != nil {
		return err
	}

	campaignDelaySet = cmd.Flags().Changed("delay")
	runner, err := buildRunner(ctx, a, ids)
	if err != nil {
		return err
	}

	printCampaignHeader(cmd, a, len(ids))

	return driveCampaign(ctx, cmd, a, runner, func(runCtx context.Context) {
		runner.Start(runCtx)
	})
}

func runCampaignResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := buildRunner(ctx, a, nil)
	if err != nil {
		return err
	}

	progress := runner.Progress()
	switch progress.Status {
	case campaign.StatusPaused, campaign.StatusRunning:
	default:
		return types.NewError(types.CAMPAIGN_INVALID_STATE,
			fmt.Sprintf("campaign %q is %s, nothing to resume", sessionOrDefault(), progress.Status))
	}

	cmd.Printf("Resuming campaign %s at attack %d of %d\n",
		sessionOrDefault(), progress.CompletedAttacks+1, progress.TotalAttacks)

	return driveCampaign(ctx, cmd, a, runner, func(runCtx context.Context) {
		runner.Resume(runCtx)
	})
}

func runCampaignStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.snapshots.GetItem(ctx, campaign.SnapshotKey(sessionOrDefault()))
	if err != nil {
		return err
	}
	if data == nil {
		return types.NewError(types.CAMPAIGN_NOT_FOUND,
			fmt.Sprintf("no campaign state for session %q", sessionOrDefault()))
	}

	snap, err := campaign.DecodeSnapshot(data)
	if err != nil {
		return err
	}

	printProgress(cmd, snap.Progress)
	if len(snap.Results) > 0 {
		cmd.Println()
		printResults(cmd, snap.Results)
	}
	return nil
}

func runCampaignReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.snapshots.RemoveItem(ctx, campaign.SnapshotKey(sessionOrDefault())); err != nil {
		return err
	}
	cmd.Printf("Campaign %s reset\n", sessionOrDefault())
	return nil
}

// selectTemplateIDs resolves the --template/--category flags into the ordered
// id list, defaulting to every enabled template.
func selectTemplateIDs(ctx context.Context, a *app) ([]string, error) {
	if len(campaignTemplates) > 0 {
		return campaignTemplates, nil
	}

	filter := template.Filter{OnlyEnabled: true}
	if campaignCategory != "" {
		filter.Category = template.Category(campaignCategory)
	}
	templates, err := a.registry.List(ctx, &filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		ids = append(ids, tmpl.ID)
	}
	return ids, nil
}

func buildRunner(ctx context.Context, a *app, ids []string) (*campaign.Runner, error) {
	engine, err := a.buildEngine()
	if err != nil {
		return nil, err
	}

	delay := a.cfg.Campaign.DelayBetweenAttacks
	if campaignDelaySet {
		delay = campaignDelay
	}

	return campaign.NewRunner(ctx, campaign.Config{
		TemplateIDs:         ids,
		SessionID:           sessionOrDefault(),
		DelayBetweenAttacks: delay,
		Resolver:            engine,
		Executor:            engine,
		Store:               a.snapshots,
	},
		campaign.WithLogger(newLogger(a.cfg.Logging)),
		campaign.WithOnProgress(printProgressLine),
	)
}

// driveCampaign runs the campaign loop in one goroutine and cancels it from
// another when the process receives an interrupt, then reports the outcome
// and records it in the battle history.
func driveCampaign(ctx context.Context, cmd *cobra.Command, a *app, runner *campaign.Runner, run func(context.Context)) error {
	started := time.Now()
	done := make(chan struct{})

	g, runCtx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(done)
		run(runCtx)
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			runner.Cancel()
		case <-done:
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	progress := runner.Progress()
	cmd.Println()
	printProgress(cmd, progress)

	if progress.Status.IsTerminal() && progress.Status != campaign.StatusFailed {
		rec := history.FromCampaign(
			runner.SessionID(),
			a.cfg.Target.Provider,
			a.cfg.Target.Model,
			progress,
			runner.Results(),
			started,
		)
		if err := a.history.Record(ctx, rec); err != nil {
			cmd.PrintErrf("Warning: failed to record history: %v\n", err)
		} else if limit := a.cfg.Campaign.HistoryLimit; limit > 0 {
			if _, err := a.history.Prune(ctx, limit); err != nil {
				cmd.PrintErrf("Warning: failed to prune history: %v\n", err)
			}
		}
	}

	if progress.Status == campaign.StatusFailed && len(progress.Errors) > 0 {
		return types.NewError(types.CAMPAIGN_NO_TEMPLATES, progress.Errors[len(progress.Errors)-1])
	}
	return nil
}

func sessionOrDefault() string {
	if campaignSession == "" {
		return "default"
	}
	return campaignSession
}

func printCampaignHeader(cmd *cobra.Command, a *app, total int) {
	bold := color.New(color.Bold)
	cmd.Printf("%s against %s", bold.Sprint("Campaign"), a.cfg.Target.Provider)
	if a.cfg.Target.Model != "" {
		cmd.Printf(" (%s)", a.cfg.Target.Model)
	}
	cmd.Printf(": %d attacks\n\n", total)
}

func printProgressLine(p campaign.Progress) {
	current := p.CurrentAttackID
	if current == "" && p.CompletedAttacks > 0 {
		current = "done"
	}
	fmt.Printf("  [%d/%d] %s  %s ok, %s resisted\n",
		p.CompletedAttacks, p.TotalAttacks,
		current,
		color.GreenString("%d", p.SuccessfulAttacks),
		color.RedString("%d", p.FailedAttacks),
	)
}

func printProgress(cmd *cobra.Command, p campaign.Progress) {
	status := string(p.Status)
	switch p.Status {
	case campaign.StatusCompleted:
		status = color.GreenString(status)
	case campaign.StatusCancelled, campaign.StatusFailed:
		status = color.RedString(status)
	case campaign.StatusPaused:
		status = color.YellowString(status)
	}

	cmd.Printf("Status:     %s\n", status)
	cmd.Printf("Progress:   %d/%d attacks (%d successful, %d resisted)\n",
		p.CompletedAttacks, p.TotalAttacks, p.SuccessfulAttacks, p.FailedAttacks)
	cmd.Printf("Elapsed:    %ds\n", p.ElapsedSeconds)
	if len(p.Errors) > 0 {
		cmd.Printf("Errors:\n")
		for _, msg := range p.Errors {
			cmd.Printf("  - %s\n", msg)
		}
	}
}

func printResults(cmd *cobra.Command, results []campaign.AttackResult) {
	cmd.Println("Results:")
	for _, res := range results {
		marker := color.RedString("resisted")
		if res.Success {
			marker = color.GreenString("success")
		}
		line := fmt.Sprintf("  %-40s %s  %4dms", res.TemplateID, marker, res.DurationMs)
		if res.Error != "" {
			line += "  " + strings.TrimSpace(res.Error)
		}
		cmd.Println(line)
	}
}
