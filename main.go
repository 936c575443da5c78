package main

import "github.com/sw33tLie/opcheck/cmd"

func main() {
	cmd.Execute()
}
