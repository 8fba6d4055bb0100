package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sherifkozman/red-council/internal/template"
)

var (
	templateListCategory string
	templateListAll      bool
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage attack templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available attack templates",
	RunE:  runTemplateList,
}

var templateEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.registry.Enable(cmd.Context(), args[0])
	},
}

var templateDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a template so campaigns skip it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.registry.Disable(cmd.Context(), args[0])
	},
}

func init() {
	templateListCmd.Flags().StringVar(&templateListCategory, "category", "", "Only list templates in this category")
	templateListCmd.Flags().BoolVar(&templateListAll, "all", false, "Include disabled templates")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateEnableCmd)
	templateCmd.AddCommand(templateDisableCmd)
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	filter := template.Filter{OnlyEnabled: !templateListAll}
	if templateListCategory != "" {
		filter.Category = template.Category(templateListCategory)
	}

	templates, err := a.registry.List(ctx, &filter)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		cmd.Println("No templates found")
		return nil
	}

	bold := color.New(color.Bold)
	cmd.Printf("%s\n", bold.Sprintf("%-40s %-24s %-10s %s", "ID", "CATEGORY", "SEVERITY", "NAME"))
	for _, tmpl := range templates {
		severity := string(tmpl.Severity)
		switch tmpl.Severity {
		case template.SeverityCritical:
			severity = color.RedString(severity)
		case template.SeverityHigh:
			severity = color.YellowString(severity)
		}
		name := tmpl.Name
		if !tmpl.Enabled {
			name += color.New(color.Faint).Sprint(" (disabled)")
		}
		cmd.Printf("%-40s %-24s %-10s %s\n", tmpl.ID, tmpl.Category, severity, name)
	}
	return nil
}
