package main

import "github.com/trackarr/trackarr/cmd"

func main() {
	cmd.Execute()
}
