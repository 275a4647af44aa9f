package cmd

import (
	"context"

	"github.com/KaramelBytes/datadash-cli/internal/dashboard"
	"github.com/KaramelBytes/datadash-cli/internal/ui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <file>",
	Short: "Open an interactive chat about a dataset",
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
		gen := newInsightGenerator(c)
		responder := newChatResponder(c)

		sess := dashboard.NewSession()
		sess.Load(ds.Name, ds)
		refresh := func(ctx context.Context) []string {
			tk, err := sess.BeginInsights()
			if err != nil {
				return sess.Insights()
			}
			if err := sess.CommitInsights(tk, gen.Generate(ctx, sess.Dataset())); err != nil {
				debugf("insights dropped: %v", err)
			}
			return sess.Insights()
		}
		answer := func(ctx context.Context, q string) string {
			tk, err := sess.BeginChat()
			if err != nil {
				return err.Error()
			}
			defer sess.Finish(tk)
			return responder.Respond(ctx, q, sess.Dataset(), sess.Insights())
		}
		insights := refresh(cmd.Context())
		return ui.Run(ui.NewModel(ds, insights, answer, refresh))
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
