package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/danmuck/squadron/internal/config"
	"github.com/danmuck/squadron/internal/deploy"
	"github.com/danmuck/squadron/internal/logging"
	"github.com/danmuck/squadron/internal/tools"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", "deploy", "template kind: deploy|actions|react")
	output := flag.String("output", "", "output path for the template")
	validate := flag.Bool("validate", false, "validate an existing deploy config and its service descriptors")
	input := flag.String("input", "deploy.toml", "deploy config path for validation")
	force := flag.Bool("force", false, "overwrite existing file")
	flag.Parse()

	if *validate {
		if err := validateDeployment(*input); err != nil {
			log.Fatal().Err(err).Str("path", *input).Msg("validation failed")
		}
		log.Info().Str("path", *input).Msg("validated deploy config and descriptors")
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "deploy":
			target = "deploy.toml"
		case "actions", "react":
			target = *kind + ".json"
		default:
			log.Fatal().Str("kind", *kind).Msg("unknown kind")
		}
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("create output dir")
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote template")
}

// validateDeployment loads the config and plans every service without running anything.
func validateDeployment(path string) error {
	cfg, err := config.LoadDeployConfig(path)
	if err != nil {
		return err
	}
	plan, err := deploy.New(cfg, tools.ExecRunner{}).Plan(context.Background())
	if err != nil {
		return err
	}
	return plan.Validate()
}
