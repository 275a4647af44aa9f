package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var insightsTimeout time.Duration

var insightsCmd = &cobra.Command{
	Use:   "insights <file>",
	Short: "Generate key insights about a dataset (AI when configured, local otherwise)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), insightsTimeout)
		defer cancel()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Key Insights")
		for i, s := range newInsightGenerator(c).Generate(ctx, ds) {
			fmt.Fprintf(out, "%d. %s\n", i+1, s)
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <file> <question...>",
	Short: "Ask one question about a dataset",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), insightsTimeout)
		defer cancel()
		question := strings.Join(args[1:], " ")
		fmt.Fprintln(cmd.OutOrStdout(), newChatResponder(c).Respond(ctx, question, ds, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(askCmd)
	insightsCmd.Flags().DurationVar(&insightsTimeout, "timeout", 2*time.Minute, "overall time limit for the AI request")
	askCmd.Flags().DurationVar(&insightsTimeout, "timeout", 2*time.Minute, "overall time limit for the AI request")
}
