package cmd

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// universitiesCmd represents the universities command
var universitiesCmd = &cobra.Command{
	Use:   "universities",
	Short: "List the universities in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		universities, err := store.Universities(ctx)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name", "Aliases", "Timezone", "Courses", "Latest run"})
		for _, u := range universities {
			courses, err := store.Courses(ctx, u.ID)
			if err != nil {
				return err
			}
			run, err := store.LatestRun(ctx, u.ID)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{u.ID, u.Name, strings.Join(u.Aliases, ", "), u.Timezone, len(courses), run})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(universitiesCmd)
}
