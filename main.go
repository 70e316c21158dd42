package main

import (
	"fmt"
	"os"

	"github.com/goldyfruit/kube-inventory/cmd"
	"github.com/goldyfruit/kube-inventory/internal/exit"
)

func main() {
	root := cmd.NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exit.Code(err))
	}
}
