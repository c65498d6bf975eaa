package utils

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
)

// LoadEnv reads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set in the environment win. A missing file
// is not an error.
func LoadEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("No %s file found, using system environment variables only", filename)
			return nil
		}
		return fmt.Errorf("error opening %s file: %w", filename, err)
	}
	defer file.Close()

	log.Printf("Loading environment variables from %s", filename)

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if key == "" {
			log.Printf("Warning: invalid format in %s line %d", filename, line)
			continue
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading %s file: %w", filename, err)
	}
	return nil
}

// parseEnvLine splits one dotenv line into key and unquoted value. ok is
// false for blank lines and comments; a malformed line returns ok with an
// empty key.
func parseEnvLine(raw string) (key, value string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", true
	}

	key = strings.TrimSpace(k)
	value = strings.TrimSpace(v)
	for _, quote := range []string{`"`, "'"} {
		if len(value) >= 2 && strings.HasPrefix(value, quote) && strings.HasSuffix(value, quote) {
			value = value[1 : len(value)-1]
			break
		}
	}
	return key, value, true
}
