package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/assetwatch/assetwatch/internal/auth"
)

type output struct {
	Token        string `json:"token"`
	TokenPrefix  string `json:"token_prefix"`
	KeyringEntry string `json:"keyring_entry"`
}

func main() {
	var (
		env    = flag.String("env", auth.EnvLive, "Token environment (live or test)")
		format = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	generated, err := auth.GenerateToken(*env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate token:", err)
		os.Exit(1)
	}

	out := output{
		Token:        generated.Plaintext,
		TokenPrefix:  generated.Prefix,
		KeyringEntry: generated.KeyringEntry(),
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println("token:        ", out.Token)
		fmt.Println("ADMIN_TOKENS: ", out.KeyringEntry)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
