package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"emolens/internal/adapters/model"
	"emolens/internal/platform/config"
	"emolens/internal/platform/logger"
)

func main() {
	fEnv := flag.String("env", ".env", "dotenv file loaded before reading config")
	fTimeout := flag.Duration("timeout", 30*time.Second, "metadata request timeout")
	flag.Parse()

	if _, err := config.LoadDotenv(*fEnv); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
		os.Exit(2)
	}
	l := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), *fTimeout)
	defer cancel()

	m, err := model.Load(ctx, model.ConfigFromEnv(config.New()))
	if err != nil {
		l.Error().Err(err).Msg("model load failed")
		os.Exit(1)
	}
	fmt.Println(m.Info())
}
