package main

import (
	"os"

	"rideconnect/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
