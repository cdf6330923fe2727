package main

import "github.com/fanify/hype-flow/cmd"

func main() {
	cmd.Execute()
}
