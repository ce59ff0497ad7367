package main

import "github.com/rudransh-shrivastava/pairlink/internal/cli/cmd"

func main() {
	cmd.Execute()
}
