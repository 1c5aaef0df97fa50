/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	releaseVersion = "0.1.0"
)

// loadEnv reads .env style files into the environment before flags are
// bound. Missing files are skipped.
func loadEnv(logger zerolog.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("START: Could not load .env file")
	}
}

func main() {
	loadEnv(zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: logDate,
	}).With().Timestamp().Logger())

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
