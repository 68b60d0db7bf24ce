package main

import "github.com/ccakes/athenacli/cmd"

func main() {
	cmd.Execute()
}
