package cmd

import (
	"strings"

	"github.com/postflowhq/postflow/internal/bootstrap"
	"github.com/postflowhq/postflow/internal/config"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "postflow",
	Short: "Account linking and login service for Postflow.",
	Long:  `Postflow connects X (Twitter) accounts to Postflow users over OAuth2 with PKCE and keeps the linked identities up to date.`,
	Run: func(cmd *cobra.Command, args []string) {
		log.Info().Msg("Parsing config")

		var conf config.Config

		err := viper.Unmarshal(&conf)
		HandleError(err, "Failed to parse config")

		log.Info().Msg("Validating config")

		validate := validator.New()
		err = validate.Struct(conf)
		HandleError(err, "Invalid config")

		level, err := zerolog.ParseLevel(conf.LogLevel)
		HandleError(err, "Invalid log level")
		zerolog.SetGlobalLevel(level)

		app := bootstrap.NewBootstrapApp(conf)
		err = app.Setup()
		HandleError(err, "Failed to start app")
	},
}

func HandleError(err error, msg string) {
	if err != nil {
		log.Fatal().Err(err).Msg(msg)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run command")
	}
}

func init() {
	flags := rootCmd.Flags()

	flags.Int("port", 3000, "Port to listen on")
	flags.String("address", "0.0.0.0", "Address to bind to")
	flags.String("app-url", "", "Public URL of the app, e.g. https://app.postflow.io")
	flags.String("database-path", "/data/postflow.db", "Path to the sqlite database")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	flags.String("twitter-client-id", "", "Twitter OAuth2 client ID")
	flags.String("twitter-client-secret", "", "Twitter OAuth2 client secret")
	flags.String("twitter-client-secret-file", "", "File containing the Twitter OAuth2 client secret")
	flags.String("twitter-redirect-url", "", "Registered OAuth2 callback URL")
	flags.String("twitter-fallback-bearer", "", "Fallback bearer token for identity lookups")
	flags.String("session-secret", "", "Secret used to sign session tokens")
	flags.Int("session-expiry", 86400, "Session expiry in seconds")
	flags.Int("state-ttl", 600, "OAuth state lifetime in seconds")
	flags.Bool("secure-cookie", false, "Send cookies over HTTPS only")
	flags.String("trusted-proxies", "", "Comma separated list of trusted proxies")

	viper.BindPFlags(flags)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	newVersionCmd(rootCmd).Register()
	newHealthcheckCmd(rootCmd).Register()
}
