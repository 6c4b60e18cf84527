package main

import (
	"os"

	"github.com/dl/gogrok/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
