package main

import "github.com/tranvictor/medchain/cmd"

func main() {
	cmd.Execute()
}
