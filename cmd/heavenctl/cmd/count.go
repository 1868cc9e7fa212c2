package cmd

import (
	"log"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var countShopdir string

func init() {
	countCmd.Flags().StringVar(&countShopdir, "shopdir", "", "shop directory name")
	countCmd.MarkFlagRequired("shopdir")
	rootCmd.AddCommand(countCmd)
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show today's diary post counts per cast.",
	Run: func(cmd *cobra.Command, args []string) {
		session, err := loadSession()
		if err != nil {
			log.Fatal(err)
		}

		var result struct {
			TotalToday int            `json:"total_today"`
			ByCast     map[string]int `json:"by_cast"`
		}
		err = call("/api/heaven/diary_count", map[string]any{
			"session_id":    session.SessionId,
			"shopdir":       countShopdir,
			"extra_cookies": session.ExtraCookies,
		}, &result)
		if err != nil {
			log.Fatal(err)
		}

		casts := make([]string, 0, len(result.ByCast))
		for cast := range result.ByCast {
			casts = append(casts, cast)
		}
		sort.Strings(casts)

		t := newTable()
		t.AppendHeader(table.Row{"cast", "posts"})
		for _, cast := range casts {
			t.AppendRow(table.Row{cast, result.ByCast[cast]})
		}
		t.AppendFooter(table.Row{"total", result.TotalToday})
		t.Render()
	},
}
