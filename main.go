package main

import "github.com/arbcore/xvenue-arb/cmd"

func main() {
	cmd.Execute()
}
