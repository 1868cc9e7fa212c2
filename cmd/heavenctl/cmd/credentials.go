package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var credsShopdir string
var credsId string
var credsPass string

func init() {
	credsSetCmd.Flags().StringVar(&credsShopdir, "shopdir", "", "shop directory name")
	credsSetCmd.Flags().StringVar(&credsId, "id", "", "portal account id")
	credsSetCmd.Flags().StringVar(&credsPass, "pass", "", "portal account password")
	credsSetCmd.MarkFlagRequired("shopdir")
	credsSetCmd.MarkFlagRequired("id")
	credsSetCmd.MarkFlagRequired("pass")
	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsStatusCmd)
	rootCmd.AddCommand(credsCmd)
}

var credsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage portal credentials stored on the server.",
}

var credsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store portal credentials for a shop.",
	Run: func(cmd *cobra.Command, args []string) {
		var result struct {
			Ok bool `json:"ok"`
		}
		err := call("/api/heaven/credentials", map[string]string{
			"shopdir":     credsShopdir,
			"heaven_id":   credsId,
			"heaven_pass": credsPass,
		}, &result)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("credentials stored")
	},
}

var credsStatusCmd = &cobra.Command{
	Use:   "status <shopdir>",
	Short: "Check whether credentials are stored for a shop.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var result struct {
			Provided bool `json:"provided"`
		}
		res, err := client.R().
			SetQueryParam("shopdir", args[0]).
			SetResult(&result).
			Get("/api/heaven/credentials/status")
		if err != nil {
			log.Fatal(err)
		}
		if res.IsError() {
			log.Fatal(res.Status())
		}
		if result.Provided {
			fmt.Println("credentials are stored")
		} else {
			fmt.Println("no credentials stored")
		}
	},
}
