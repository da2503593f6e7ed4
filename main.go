package main

import "github.com/khanhnv2901/riskscan/cmd"

// execCmd is swapped out in tests.
var execCmd = cmd.Execute

func main() {
	execCmd()
}
