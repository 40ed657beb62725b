package cmd

import (
	"fmt"

	"github.com/mbhatt/pageweight/pkg/version"
)

func executeVersion() error {
	fmt.Printf("%s (commit: %s)\n", version.Version, version.CommitHash)
	if latest, ok := version.UpdateAvailable(); ok {
		fmt.Printf("a newer version is available: %s\n", latest)
	}
	return nil
}
