package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"placement-service/internal/config"
	"placement-service/internal/database/mongo"
	"placement-service/internal/event"
	"placement-service/internal/importer"
	"placement-service/internal/repository"
	"placement-service/internal/service"
)

var (
	importSheet    string
	importStartRow int
)

var importCmd = &cobra.Command{
	Use:   "import-questions <file.xlsx|file.csv>",
	Short: "Load a question bank sheet into MongoDB",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		mongoClient, db, err := mongo.Connect(cfg.MongoDB)
		if err != nil {
			return err
		}
		defer mongo.Disconnect(mongoClient)

		var publisher event.Publisher
		publisher, err = event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Printf("Warning: Failed to initialize event publisher: %v", err)
			publisher = event.NewMockPublisher()
		}
		defer publisher.Close()

		questionService := service.NewQuestionService(repository.NewQuestionRepository(db), nil, publisher)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result, err := importer.Import(ctx, importer.ImportConfig{
			FilePath:  args[0],
			SheetName: importSheet,
			StartRow:  importStartRow,
		}, questionService)
		if result != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d rows: %d imported, %d skipped\n",
				result.TotalProcessed, result.Imported, result.Skipped)
			for _, rowErr := range result.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), rowErr)
			}
		}
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet to read (defaults to the first sheet)")
	importCmd.Flags().IntVar(&importStartRow, "start-row", 2, "first data row, 1-based")
}
