package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"core/services"

	"smashrank-api/config"
	"smashrank-api/fixtures"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.ConnectDatabase()

	poolClient, err := services.DialPool(config.ValkeyURL())
	if err != nil {
		log.Fatal("Failed to connect to the pool:", err)
	}
	defer poolClient.Close()

	manager := fixtures.NewFixtures(config.DB, services.NewPoolService(poolClient))
	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		return
	}

	command := os.Args[1]

	switch command {
	case "seed":
		if err := manager.Seed(); err != nil {
			log.Fatal("Failed to seed accounts:", err)
		}
		fmt.Println("Accounts seeded successfully")
	case "seed-pool":
		if err := manager.SeedPool(ctx); err != nil {
			log.Fatal("Failed to seed the pool:", err)
		}
		fmt.Println("Pool seeded successfully")
	case "clear":
		if err := manager.ClearAllData(ctx); err != nil {
			log.Fatal("Failed to clear data:", err)
		}
		fmt.Println("All data cleared")
	case "reset":
		if err := manager.ClearAllData(ctx); err != nil {
			log.Fatal("Failed to clear data:", err)
		}
		if err := manager.Seed(); err != nil {
			log.Fatal("Failed to seed accounts:", err)
		}
		if err := manager.SeedPool(ctx); err != nil {
			log.Fatal("Failed to seed the pool:", err)
		}
		fmt.Println("Data reset successfully")
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/fixtures seed       - Create the dev accounts")
	fmt.Println("  go run ./cmd/fixtures seed-pool  - Check the dev accounts into the pool")
	fmt.Println("  go run ./cmd/fixtures clear      - Clear all data and flush the pool")
	fmt.Println("  go run ./cmd/fixtures reset      - Clear then seed everything")
}
