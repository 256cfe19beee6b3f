package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/eventsdb/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var dbType string
	flag.StringVar(&dbType, "db", "", "database type, mysql or postgres (default DB_TYPE or mysql)")
	flag.Parse()

	usage := `
Run a database and a Redis container for eventsdb, then print the
environment the server needs to reach them.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH] [-db mysql|postgres]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env -db postgres
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	if dbType == "" {
		dbType = os.Getenv("DB_TYPE")
	}
	if dbType == "" || dbType == "sqlite" {
		dbType = "mysql"
	}

	ctx := context.Background()
	containers, err := testutil.StartContainers(ctx, dbType, log.Printf)
	if err != nil {
		log.Fatalf("Failed to create test containers: %v\n", err)
	}

	fmt.Println(strings.Join(containers.Env(), "\n"))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	containers.Terminate(ctx, log.Printf)
}
