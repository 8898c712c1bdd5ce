package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/lac-hong-legacy/ecotale_api/seed/seeders"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

var (
	databaseURL     string
	credentialsFile string
	redisAddr       string
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Seeding and maintenance tool for the EcoTale database",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("FIREBASE_DATABASE_URL"), "Firebase Realtime Database URL")
	cmd.PersistentFlags().StringVar(&credentialsFile, "credentials", os.Getenv("FIREBASE_CREDENTIALS_FILE"), "service account JSON file")
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", os.Getenv("REDIS_ADDR"), "redis address for change notifications (optional)")

	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newPromoteCmd())
	cmd.AddCommand(newValidateContentCmd())
	return cmd
}

// openStore connects to the production database. Writes are announced on
// the change feed when a redis address is given so running API instances
// pick them up.
func openStore(ctx context.Context) (repositories.Store, func(), error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("database url not configured (set FIREBASE_DATABASE_URL or --database-url)")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create realtime database client: %w", err)
	}

	cleanup := func() {}
	var feed repositories.ChangeFeed
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		feed = repositories.NewRedisChangeFeed(rdb, "")
		cleanup = func() { _ = rdb.Close() }
	}

	log.WithField("database_url", databaseURL).Info("Connected to database")
	return repositories.NewFirebaseStore(client, feed), cleanup, nil
}

func newSettingsCmd() *cobra.Command {
	var (
		maxUsers    int
		maintenance bool
		message     string
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Create or update the system settings document",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			var opts seeders.SettingsOptions
			if cmd.Flags().Changed("max-users") {
				opts.MaxUsers = &maxUsers
			}
			if cmd.Flags().Changed("maintenance") {
				opts.Maintenance = &maintenance
			}
			if cmd.Flags().Changed("message") {
				opts.Message = &message
			}

			settings, err := seeders.NewMainSeeder(store).SeedSettings(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "maxUsers=%d maintenance=%t message=%q\n", settings.MaxUsers, settings.Maintenance, settings.Message)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxUsers, "max-users", 0, "registration cap")
	cmd.Flags().BoolVar(&maintenance, "maintenance", false, "enable maintenance mode")
	cmd.Flags().StringVar(&message, "message", "", "maintenance message shown to users")
	return cmd
}

func newPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <uid>",
		Short: "Grant the admin role to a registered user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return seeders.NewMainSeeder(store).PromoteAdmin(cmd.Context(), args[0])
		},
	}
}

func newValidateContentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-content [dir]",
		Short: "Validate story scripts (embedded stories when no dir is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				summaries []seeders.StorySummary
				err       error
			)
			if len(args) == 1 {
				summaries, err = seeders.ValidateContent(os.DirFS(args[0]), ".")
			} else {
				summaries, err = seeders.ValidateContent(nil, "")
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSCENES\tMAX SCORE")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", s.ID, s.Title, s.Scenes, s.MaxScore)
			}
			return w.Flush()
		},
	}
}
