package main

import "github.com/KaramelBytes/datadash-cli/cmd"

func main() {
	cmd.Execute()
}
