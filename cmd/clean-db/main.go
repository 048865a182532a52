// Command-line tool to clean the database by dropping all tables in the public schema.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/config"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/logger"
)

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, "console")

	if !*yes {
		fmt.Println("WARNING: This command will DROP ALL TABLES in the 'public' schema of your database.")
		fmt.Print("This action is irreversible. Do you want to continue? (yes/no): ")

		input, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read input")
		}
		if strings.TrimSpace(strings.ToLower(input)) != "yes" {
			fmt.Println("Operation cancelled.")
			return
		}
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database failed to initialize")
	}
	defer db.Close()

	if err := db.DropAllTables(); err != nil {
		log.Fatal().Err(err).Msg("failed to execute drop command")
	}

	fmt.Println("All tables dropped successfully.")
}
