package main

import (
	"os"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/cmd"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
