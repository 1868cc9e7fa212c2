package cmd

import (
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var BaseUrl string
var AccessToken string

var client *resty.Client

var rootCmd = &cobra.Command{
	Use:   "heavenctl",
	Short: "heavenctl is a CLI interface for the heaven diary scraping server.",
}

func Execute() {
	client = resty.New().SetBaseURL(BaseUrl)
	if AccessToken != "" {
		client.SetAuthToken(AccessToken)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// call posts a JSON request to the server and decodes the success body
// into result, turning error payloads into go errors.
func call(path string, body any, result any) error {
	failure := errorResponse{}
	res, err := client.R().
		SetBody(body).
		SetResult(result).
		SetError(&failure).
		Post(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		if failure.Detail != "" {
			return fmt.Errorf("%s: %s", res.Status(), failure.Detail)
		}
		return fmt.Errorf("%s: %s", res.Status(), res.String())
	}
	return nil
}
