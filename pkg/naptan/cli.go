package naptan

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/bodspipeline/bodspipeline/pkg/redis_client"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "naptan",
		Usage: "Manage the NaPTAN stop-point cache",
		Subcommands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "Refresh the stop-point cache from the national feed",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Refresh even when the cache is still fresh",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						log.Fatal().Err(err).Msg("Failed to connect to Redis")
					}

					loader := NewLoader()
					if c.Bool("force") {
						loader.MaxAge = 0
					}

					result, err := loader.Refresh(context.Background())
					if err != nil {
						return err
					}

					if !result.Refreshed {
						log.Info().Msg("Cache still fresh, nothing to do")
					}

					return nil
				},
			},
			{
				Name:  "lookup",
				Usage: "Look a stop point up by ATCO code",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "atco",
						Usage:    "ATCO code of the stop point",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						log.Fatal().Err(err).Msg("Failed to connect to Redis")
					}

					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()

					stopPoint, err := NewStore().StopByATCO(ctx, c.String("atco"))
					if err != nil {
						return err
					}
					if stopPoint == nil {
						log.Warn().Str("atco", c.String("atco")).Msg("No such stop point")
						os.Exit(1)
					}

					name := ""
					if stopPoint.Descriptor != nil {
						name = stopPoint.Descriptor.CommonName
					}

					log.Info().
						Str("atco", stopPoint.AtcoCode).
						Str("naptan", stopPoint.NaptanCode).
						Str("name", name).
						Msg("Found stop point")

					return nil
				},
			},
			{
				Name:  "nearest",
				Usage: "Find the stop point closest to a grid reference in a CSV export",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "csv",
						Usage:    "Path to the NaPTAN CSV export",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "easting",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "northing",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					file, err := os.Open(c.String("csv"))
					if err != nil {
						return err
					}
					defer file.Close()

					index, err := LoadCSV(file)
					if err != nil {
						return err
					}

					stop := index.NearestStop(c.Float64("easting"), c.Float64("northing"))
					if stop == nil {
						log.Warn().Msg("Export contains no active stop points")
						os.Exit(1)
					}

					log.Info().
						Str("atco", stop.AtcoCode).
						Str("naptan", stop.NaptanCode).
						Str("name", stop.CommonName).
						Str("locality", stop.LocalityName).
						Float64("easting", stop.Easting).
						Float64("northing", stop.Northing).
						Msg("Nearest stop point")

					return nil
				},
			},
		},
	}
}
