package main

import "github.com/seqra/migtest/cmd"

func main() {
	cmd.Execute()
}
