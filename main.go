package main

import "github.com/scenarioctl/scenarioctl/cmd"

func main() {
	cmd.Execute()
}
