package cmd

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-errors/errors"
)

// readCode takes the code from the first argument, or from stdin when there is none
func readCode(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.WrapPrefix(err, "Could not read code from stdin", 0)
	}

	code := strings.TrimSpace(string(data))
	if code == "" {
		return "", errors.Errorf("No code given as argument or on stdin")
	}

	return code, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return errors.WrapPrefix(err, "Could not JSON marshal output", 0)
	}

	return nil
}
