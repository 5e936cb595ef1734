// main is the entry point for the patchcorpus CLI.
package main

import (
	"github.com/huangsam/patchcorpus/cmd"
	"github.com/huangsam/patchcorpus/internal/contract"
	"github.com/huangsam/patchcorpus/internal/iocache"
)

func main() {
	defer iocache.CloseCaching()
	cmd.SetCacheManager(iocache.Manager)

	if err := cmd.Execute(); err != nil {
		iocache.CloseCaching()
		contract.LogFatal("Cannot run patchcorpus", err)
	}
}
