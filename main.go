package main

import (
	"log"

	_ "github.com/anoixa/image-admin/docs"

	"github.com/anoixa/image-admin/config"

	"github.com/anoixa/image-admin/cmd"
)

func main() {
	log.Printf("image admin %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
