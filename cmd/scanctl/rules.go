package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bonescan-backend/internal/analyses/routing"
)

func newRulesCmd() *cobra.Command {
	var policyName, file string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the specialist routing table of a policy",
		Long: `Prints the ordered routing rules and scope filter of a policy.
With --file the YAML overlay is validated and the merged table is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := routing.PolicyByName(policyName)
			if err != nil {
				return err
			}
			if file != "" {
				if policy, err = routing.LoadRulesFile(file, policy); err != nil {
					return err
				}
			}
			return printPolicy(cmd, policy)
		},
	}
	cmd.Flags().StringVar(&policyName, "policy", routing.PolicyFractureOnly, "built-in policy")
	cmd.Flags().StringVar(&file, "file", "", "YAML rules file to overlay")
	return cmd
}

func printPolicy(cmd *cobra.Command, policy routing.Policy) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "policy: %s\n", policy.Name)
	fmt.Fprintf(out, "default specialist: %s\n", policy.DefaultSpecialist)
	if policy.Scope != nil {
		fmt.Fprintf(out, "out of scope: %s\n", strings.Join(policy.Scope.OutOfScopeTerms, ", "))
		fmt.Fprintf(out, "in scope: %s\n", strings.Join(policy.Scope.InScopeTerms, ", "))
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tRULE\tCONDITION\tREGION\tSPECIALIST")
	for i, rule := range policy.Rules {
		region := strings.Join(rule.RegionKeywords, ",")
		if region == "" {
			region = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, rule.Name, strings.Join(rule.ConditionKeywords, ","), region, rule.Specialist)
	}
	return tw.Flush()
}
