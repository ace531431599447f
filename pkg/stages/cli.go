package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/bodspipeline/bodspipeline/pkg/database"
	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/redis_client"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "pipeline",
		Usage: "Run ETL pipeline stages",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a single stage against an event",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "stage",
						Usage:    "Name of the stage to run",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "event",
						Usage: "Event JSON",
					},
					&cli.StringFlag{
						Name:  "event-file",
						Usage: "Path to a file containing the event JSON",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}
					if err := objectstore.Connect(); err != nil {
						return err
					}

					handlers, err := NewHandlers()
					if err != nil {
						return err
					}

					handler := handlers.Wrapped(c.String("stage"))
					if handler == nil {
						return fmt.Errorf("unknown stage %q", c.String("stage"))
					}

					eventJSON := []byte(c.String("event"))
					if c.String("event-file") != "" {
						eventJSON, err = os.ReadFile(c.String("event-file"))
						if err != nil {
							return err
						}
					}

					var event pipeline.Event
					if err := json.Unmarshal(eventJSON, &event); err != nil {
						return fmt.Errorf("decoding event: %w", err)
					}

					result, err := handler(context.Background(), &event)
					if err != nil {
						return err
					}

					encoded, err := json.Marshal(result)
					if err != nil {
						return err
					}
					fmt.Println(string(encoded))

					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List available stages",
				Action: func(c *cli.Context) error {
					handlers := &Handlers{}
					for _, stage := range handlers.All() {
						log.Info().Str("stage", stage.Name).Send()
					}
					return nil
				},
			},
		},
	}
}
