package main

import (
	"fmt"
	"os"

	"github.com/corbat-tech/coco/cmd/coco/cmds"
)

func main() {
	if err := cmds.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
