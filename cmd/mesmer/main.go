package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gomesmer/mesmer/app/repository"
	"github.com/gomesmer/mesmer/internal/pkg/cache"
	"github.com/gomesmer/mesmer/internal/pkg/config"
	"github.com/gomesmer/mesmer/internal/pkg/database"
	"github.com/gomesmer/mesmer/internal/pkg/env"
	"github.com/gomesmer/mesmer/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()

	// Fail fast on missing secrets before any request is served.
	if err := config.Load().Validate(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()

	app := fiber.New(fiber.Config{
		AppName: "Mesmer League",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
