package main

import (
	"context"
	"log"

	"github.com/mediavault/mediavault/internal/buildinfo"
	"github.com/mediavault/mediavault/internal/server"
	"github.com/mediavault/mediavault/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(log.Writer())

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
