package main

import "sonicgate/cmd"

func main() {
	cmd.Execute()
}
