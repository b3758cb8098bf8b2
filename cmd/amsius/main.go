package main

import (
	"fmt"
	"os"

	"github.com/amsius/amsius/common/environment"
	"github.com/amsius/amsius/common/version"
	"github.com/amsius/amsius/internal/amsius/app"
	"github.com/amsius/amsius/internal/amsius/matrix"
	"github.com/amsius/amsius/internal/amsius/profile"
)

func main() {
	fmt.Printf("Amsius %s\n\n", version.Info())

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Validate required configuration
	if config.Matrix.Homeserver == "" {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_HOMESERVER is required\n")
		os.Exit(1)
	}
	if config.Matrix.UserID == "" {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_USER_ID is required\n")
		os.Exit(1)
	}
	if config.Matrix.AccessToken == "" {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_ACCESS_TOKEN is required\n")
		os.Exit(1)
	}
	if len(config.Matrix.Rooms) == 0 {
		fmt.Fprintf(os.Stderr, "Error: MATRIX_ROOMS (or profile rooms) is required\n")
		os.Exit(1)
	}

	amsius, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Amsius: %v\n", err)
		os.Exit(1)
	}
	defer amsius.Stop()

	if err := amsius.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Amsius: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the application configuration from the optional YAML
// profile and the environment. Environment values override the profile.
func loadConfig() (*app.Config, error) {
	prof := &profile.Profile{}
	if path := environment.StringOr("AMSIUS_PROFILE", ""); path != "" {
		p, err := profile.Load(path)
		if err != nil {
			return nil, err
		}
		prof = p
	}

	name := prof.Name
	if name == "" {
		name = "Amsius"
	}

	return &app.Config{
		Name: environment.StringOr("AMSIUS_NAME", name),
		Matrix: matrix.Config{
			Homeserver:  environment.StringOr("MATRIX_HOMESERVER", ""),
			UserID:      environment.StringOr("MATRIX_USER_ID", ""),
			AccessToken: environment.StringOr("MATRIX_ACCESS_TOKEN", ""),
			Rooms:       environment.StringSliceOr("MATRIX_ROOMS", prof.Rooms),
		},
		DatabasePath:   environment.StringOr("AMSIUS_DATABASE_PATH", prof.Memory.DatabasePath),
		SnapshotPath:   environment.StringOr("AMSIUS_SNAPSHOT_PATH", prof.Memory.SnapshotPath),
		CorpusCap:      environment.IntOr("AMSIUS_CORPUS_CAP", prof.Memory.CorpusCap),
		MaxLength:      environment.IntOr("AMSIUS_MAX_LENGTH", prof.Memory.MaxLength),
		CountThreshold: environment.IntOr("AMSIUS_COUNT_THRESHOLD", prof.Memory.CountThreshold),
		HistorySize:    environment.IntOr("AMSIUS_HISTORY_SIZE", prof.Memory.HistorySize),
		IgnoredUsers:   environment.StringSliceOr("AMSIUS_IGNORED_USERS", prof.IgnoredUsers),
	}, nil
}
