package cmd

import (
	"fmt"
	"log"
	"sort"

	"heavenwatch-backend/lib/textutil"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var hourlyShopdir string
var hourlyFrom string
var hourlyTo string
var hourlyCast string

func init() {
	hourlyCmd.Flags().StringVar(&hourlyShopdir, "shopdir", "", "shop directory name")
	hourlyCmd.Flags().StringVar(&hourlyFrom, "from", "", "first day to include (YYYY-MM-DD)")
	hourlyCmd.Flags().StringVar(&hourlyTo, "to", "", "last day to include (YYYY-MM-DD)")
	hourlyCmd.Flags().StringVar(&hourlyCast, "cast", "", "only show this cast (approximate name matching)")
	hourlyCmd.MarkFlagRequired("shopdir")
	rootCmd.AddCommand(hourlyCmd)
}

// resolveCast picks the stored cast name closest to the requested one,
// so operators don't have to reproduce the portal's exact spelling.
func resolveCast(requested string, byHour map[string]map[int]int) (string, error) {
	requestedNorm := textutil.NormalizeName(requested)

	best := ""
	bestSimilarity := 0.0
	for cast := range byHour {
		similarity := matchr.JaroWinkler(requestedNorm, textutil.NormalizeName(cast), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = cast
		}
	}
	if best == "" {
		return "", fmt.Errorf("no cast matches %q", requested)
	}
	return best, nil
}

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Show diary posts bucketed by hour, per cast.",
	Run: func(cmd *cobra.Command, args []string) {
		session, err := loadSession()
		if err != nil {
			log.Fatal(err)
		}

		var result struct {
			ByHour      map[string]map[int]int `json:"by_hour"`
			TotalByHour map[int]int            `json:"total_by_hour"`
		}
		err = call("/api/heaven/diary_hourly", map[string]any{
			"session_id":    session.SessionId,
			"shopdir":       hourlyShopdir,
			"from_date":     hourlyFrom,
			"to_date":       hourlyTo,
			"extra_cookies": session.ExtraCookies,
		}, &result)
		if err != nil {
			log.Fatal(err)
		}

		buckets := result.TotalByHour
		header := "all casts"
		if hourlyCast != "" {
			cast, err := resolveCast(hourlyCast, result.ByHour)
			if err != nil {
				log.Fatal(err)
			}
			buckets = result.ByHour[cast]
			header = cast
		}

		hours := make([]int, 0, len(buckets))
		for hour := range buckets {
			hours = append(hours, hour)
		}
		sort.Ints(hours)

		t := newTable()
		t.AppendHeader(table.Row{"hour", header})
		total := 0
		for _, hour := range hours {
			t.AppendRow(table.Row{fmt.Sprintf("%02d:00", hour), buckets[hour]})
			total += buckets[hour]
		}
		t.AppendFooter(table.Row{"total", total})
		t.Render()
	},
}
