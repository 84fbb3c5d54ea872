package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/psds-microservice/apihub-support/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("apihub-support")
		os.Exit(1)
	}
}
