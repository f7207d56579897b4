package main

import (
	"github.com/sidkik/storage-manager/cmd"
	"github.com/sidkik/storage-manager/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
