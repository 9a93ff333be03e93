package main

import "github.com/MeKo-Tech/wrapnoise/internal/cmd"

func main() {
	cmd.Execute()
}
