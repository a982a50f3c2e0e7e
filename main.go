package main

import "github.com/certusone/wormhole/connect/cmd"

func main() {
	cmd.Execute()
}
