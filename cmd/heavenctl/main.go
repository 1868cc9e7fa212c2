package main

import (
	"fmt"
	"os"

	"heavenwatch-backend/cmd/heavenctl/cmd"
)

func main() {
	baseUrl, ok := os.LookupEnv("HEAVEN_BASE_URL")
	if !ok {
		fmt.Println("You should specify the base url of the heaven server in the environment variable HEAVEN_BASE_URL.")
		os.Exit(1)
	}
	cmd.BaseUrl = baseUrl
	cmd.AccessToken = os.Getenv("HEAVEN_ACCESS_TOKEN")

	cmd.Execute()
}
