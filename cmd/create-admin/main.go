// Command create-admin adds an admin account and prints its credentials.
// With -prompt the username and password are read from stdin instead of generated.
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/config"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/logger"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

// generateRandomString creates a random hex string of length 2n
func generateRandomString(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// generateUniqueUsername tries until a unique username is found
func generateUniqueUsername(db *gorm.DB) (string, error) {
	for {
		suffix, err := generateRandomString(4)
		if err != nil {
			return "", err
		}
		username := "admin_" + suffix
		taken, err := usernameTaken(db, username)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
	}
}

func promptCredentials(reader *bufio.Reader) (string, string, error) {
	read := func(label string) (string, error) {
		fmt.Print(label)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	username, err := read("Enter username: ")
	if err != nil {
		return "", "", err
	}
	password, err := read("Enter password: ")
	if err != nil {
		return "", "", err
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return "", "", err
	}

	if username == "" || password == "" {
		return "", "", errors.New("username and password are required")
	}
	if password != confirm {
		return "", "", errors.New("passwords do not match")
	}
	return username, password, nil
}

func main() {
	prompt := flag.Bool("prompt", false, "read username and password from stdin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, "console")

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database failed to initialize")
	}
	defer db.Close()

	var username, password string
	if *prompt {
		username, password, err = promptCredentials(bufio.NewReader(os.Stdin))
		if err != nil {
			log.Fatal().Err(err).Msg("invalid credentials")
		}
		taken, err := usernameTaken(db.DB, username)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to check username")
		}
		if taken {
			log.Fatal().Str("username", username).Msg("username already taken")
		}
	} else {
		if username, err = generateUniqueUsername(db.DB); err != nil {
			log.Fatal().Err(err).Msg("failed to generate username")
		}
		if password, err = generateRandomString(8); err != nil {
			log.Fatal().Err(err).Msg("failed to generate password")
		}
	}

	admin, err := utilities.CreateAdmin(password, username, db.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create admin")
	}

	fmt.Println("Admin credentials generated successfully!")
	fmt.Println("======================================")
	fmt.Printf("Username: %s\n", admin.Username)
	if !*prompt {
		fmt.Printf("Password: %s\n", password)
	}
	fmt.Println("======================================")
}
