package main

import "github.com/sanipasse/passcheck/cmd"

func main() {
	cmd.Execute()
}
