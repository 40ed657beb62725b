package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mbhatt/pageweight/pkg/cmd"
	"github.com/mbhatt/pageweight/pkg/util"
)

func main() {
	util.EnsureCacheDirs()
	ctx := context.Background()
	if err := cmd.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
