package main

import "boardmaster/cmd"

func main() {
	cmd.Execute()
}
