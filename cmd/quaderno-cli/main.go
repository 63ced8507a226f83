package main

import "quaderno/cmd/quaderno-cli/cmd"

func main() {
	cmd.Execute()
}
