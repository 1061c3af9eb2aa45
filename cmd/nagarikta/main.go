package main

import "github.com/MeKo-Tech/nagarikta/cmd/nagarikta/cmd"

func main() {
	cmd.Execute()
}
