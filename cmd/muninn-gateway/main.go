package main

import "github.com/oaustegard/cf-api-gateway/cmd/muninn-gateway/cmd"

func main() {
	cmd.Execute()
}
