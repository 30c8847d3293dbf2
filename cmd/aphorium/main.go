package main

import "github.com/emrgen/aphorium/cmd"

func main() {
	cmd.Execute()
}
