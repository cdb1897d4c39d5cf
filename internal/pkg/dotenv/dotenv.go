package dotenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Load подгружает .env, если он есть, и применяет флаги командной строки поверх окружения.
// Флаги бинарника должны быть объявлены до вызова Load.
func Load() (bool, error) {
	loaded := true
	err := godotenv.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		loaded = false
	}

	var portFlag string
	pflag.StringVar(&portFlag, "port", "", "Server port (overrides PORT environment variable)")
	pflag.Parse()

	if portFlag != "" {
		err := os.Setenv("PORT", portFlag)
		if err != nil {
			return loaded, fmt.Errorf("failed to set PORT environment variable: %w", err)
		}
	}
	return loaded, nil
}
