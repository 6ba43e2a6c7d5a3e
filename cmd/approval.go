package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/concordnow/concord-export/internal/approval"
)

var (
	approvalTitle       string
	approvalDescription string
	approvalRules       string
)

var approvalCmd = &cobra.Command{
	Use:   "approval-demo",
	Short: "Walk a draft agreement through the approval cycle",
	Long: `Creates a draft agreement, attaches an approval configuration, requests
approval, and accepts it. With no rules file the current user becomes the
sole approver.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.RequireOrganization(); err != nil {
			return err
		}
		client, err := initClient()
		if err != nil {
			return err
		}

		wf := &approval.Workflow{
			Client:      client,
			OrgID:       cfg.API.OrganizationID,
			Title:       approvalTitle,
			Description: approvalDescription,
			RulesPath:   approvalRules,
		}

		res, err := wf.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "agreement:         %s\n", res.AgreementUID)
		fmt.Fprintf(os.Stdout, "status after ask:  %s\n", res.StatusAfterAsk)
		fmt.Fprintf(os.Stdout, "final rule status: %s\n", res.FinalRuleStatus)
		return nil
	},
}

func init() {
	approvalCmd.Flags().StringVar(&approvalTitle, "title", "", "draft agreement title")
	approvalCmd.Flags().StringVar(&approvalDescription, "description", "", "draft agreement description")
	approvalCmd.Flags().StringVar(&approvalRules, "rules", "", "YAML approval rules file (default: current user as sole approver)")
	rootCmd.AddCommand(approvalCmd)
}
