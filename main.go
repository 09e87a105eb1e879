package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/opd-ai/cinetidy/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitError
		code := cmd.ExitUserError
		if errors.As(err, &exitErr) {
			code = exitErr.Code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}
