package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/bodspipeline/bodspipeline/pkg/naptan"
	"github.com/bodspipeline/bodspipeline/pkg/stages"

	_ "time/tzdata"
)

func main() {
	godotenv.Load()

	if os.Getenv("BODSPIPE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("BODSPIPE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "bodspipeline",
		Description: "ETL pipeline for bus open data timetables and fares",

		Commands: []*cli.Command{
			stages.RegisterCLI(),
			naptan.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
