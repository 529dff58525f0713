package cmd

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/tranvictor/medchain/activity"
	"github.com/tranvictor/medchain/storage"
	"github.com/tranvictor/medchain/wallet"
)

var ActivityLimit int

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the transactions medchain sent from this machine",
}

func withActivity(run func(l *activity.Log) error) error {
	l, err := activity.Open(storage.NewFileStore(cfg.StoragePath()), cfg.ActivityIndex)
	if err != nil {
		return err
	}
	defer l.Close()
	return run(l)
}

func showActivity(entries []activity.Entry) {
	if len(entries) == 0 {
		appUI.Info("No activity")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		actor := e.Actor
		if common.IsHexAddress(actor) {
			actor = wallet.ShortAddress(common.HexToAddress(actor))
		}
		rows = append(rows, []string{e.Time.Local().Format(time.DateTime), actor, e.Action, e.Subject, e.TxHash})
	}
	appUI.Table([]string{"Time", "Actor", "Action", "Subject", "Tx"}, rows)
}

var listActivityCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActivity(func(l *activity.Log) error {
			entries, err := l.Recent(ActivityLimit)
			if err != nil {
				return err
			}
			showActivity(entries)
			return nil
		})
	},
}

var searchActivityCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the activity, eg. by drug name, address or action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withActivity(func(l *activity.Log) error {
			entries, err := l.Search(args[0], ActivityLimit)
			if err != nil {
				return err
			}
			showActivity(entries)
			return nil
		})
	},
}

func init() {
	activityCmd.PersistentFlags().IntVarP(&ActivityLimit, "limit", "n", 20, "maximum number of entries")
	activityCmd.AddCommand(listActivityCmd)
	activityCmd.AddCommand(searchActivityCmd)
	rootCmd.AddCommand(activityCmd)
}
