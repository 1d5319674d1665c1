package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/apod-api/internal/apod"
	"github.com/jonesrussell/apod-api/internal/logger"
)

func fetchCommand() *cobra.Command {
	var (
		dateFlag   string
		thumbsFlag bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and parse one page, printing the record as JSON",
		Long: `Fetch and parse a single page without starting the server. Useful
for inspecting what the parser extracts for a given date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			fetcher := apod.NewHTTPFetcher(apod.FetcherConfig{
				BaseURL:   cfg.APOD.BaseURL,
				UserAgent: cfg.APOD.UserAgent,
				Timeout:   cfg.APOD.RequestTimeout,
			})
			service := apod.NewService(fetcher, apod.NewThumbnailResolver(nil), cfg.APOD.BaseURL, log)

			ctx := cmd.Context()

			var record *apod.PageRecord
			if dateFlag == "" {
				record, err = service.ParseLatest(ctx, thumbsFlag)
			} else {
				var date time.Time
				date, _, err = apod.ResolveDate(dateFlag, time.Now())
				if err == nil {
					record, err = service.Parse(ctx, date, false, thumbsFlag)
				}
			}
			if err != nil {
				return fmt.Errorf("fetch record: %w", err)
			}

			out, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "date to fetch (YYYY-MM-DD, default latest)")
	cmd.Flags().BoolVar(&thumbsFlag, "thumbs", false, "resolve video thumbnail URLs")

	return cmd
}
