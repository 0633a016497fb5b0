package main

import (
	"os"

	"github.com/AnTengye/contractvigency/backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
