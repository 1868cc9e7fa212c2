package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var loginId string
var loginPass string
var loginShopdir string

func init() {
	loginCmd.Flags().StringVar(&loginId, "id", "", "portal account id")
	loginCmd.Flags().StringVar(&loginPass, "pass", "", "portal account password")
	loginCmd.Flags().StringVar(&loginShopdir, "shopdir", "", "use credentials stored on the server for this shop")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log into the portal and save the session for later commands.",
	Run: func(cmd *cobra.Command, args []string) {
		var result struct {
			SessionId    string            `json:"session_id"`
			ExtraCookies map[string]string `json:"extra_cookies"`
		}
		err := call("/api/heaven/login", map[string]string{
			"heaven_id":   loginId,
			"heaven_pass": loginPass,
			"shopdir":     loginShopdir,
		}, &result)
		if err != nil {
			log.Fatal(err)
		}

		err = saveSession(sessionFile{
			SessionId:    result.SessionId,
			ExtraCookies: result.ExtraCookies,
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("logged in")
	},
}
