package main

import (
	"os"

	"github.com/wognsths/MarketSage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
