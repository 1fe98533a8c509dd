package main

import "github.com/hristiyandudev55/nurblifebg/cmd"

func main() {
	cmd.Execute()
}
