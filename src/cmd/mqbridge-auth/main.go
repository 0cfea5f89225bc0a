package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// Credential helper for the status server: emits ready-to-paste TOML for
// the [status.auth] config section.
func main() {
	var (
		username = flag.String("u", "", "Username for basic auth")
		password = flag.String("p", "", "Password to hash (will prompt if not provided)")
		cost     = flag.Int("c", bcrypt.DefaultCost, "Bcrypt cost (10-31)")
		genToken = flag.Bool("t", false, "Generate random bearer token")
		genKey   = flag.Bool("k", false, "Generate random HS256 JWT signing key")
		length   = flag.Int("l", 32, "Token/key length in bytes")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mqbridge Authentication Utility\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  Generate bcrypt hash:      %s -u <username> [-p <password>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  Generate bearer token:     %s -t [-l <length>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  Generate JWT signing key:  %s -k [-l <length>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	switch {
	case *genToken:
		emitBearerToken(*length)
	case *genKey:
		emitSigningKey(*length)
	case *username != "":
		emitBasicUser(*username, *password, *cost)
	default:
		fmt.Fprintf(os.Stderr, "Error: choose one of -u, -t or -k\n")
		flag.Usage()
		os.Exit(1)
	}
}

func emitBasicUser(username, password string, cost int) {
	if password == "" {
		password = promptPassword("Enter password: ")
		confirm := promptPassword("Confirm password: ")
		if password != confirm {
			fatalf("Passwords don't match")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		fatalf("Failed to generate hash: %v", err)
	}

	fmt.Println("\n# Add to mqbridge.toml:")
	fmt.Println(`[status.auth]`)
	fmt.Println(`type = "basic"`)
	fmt.Println()
	fmt.Println(`[[status.auth.basic_auth.users]]`)
	fmt.Printf("username = %q\n", username)
	fmt.Printf("password_hash = %q\n", string(hash))
}

func emitBearerToken(length int) {
	token := base64.URLEncoding.WithPadding(base64.NoPadding).
		EncodeToString(randomBytes(length))

	fmt.Println("\n# Add to mqbridge.toml:")
	fmt.Println(`[status.auth]`)
	fmt.Println(`type = "bearer"`)
	fmt.Println()
	fmt.Println(`[status.auth.bearer_auth]`)
	fmt.Printf("tokens = [%q]\n", token)
	fmt.Println()
	fmt.Printf("# Client header: Authorization: Bearer %s\n", token)
}

func emitSigningKey(length int) {
	key := hex.EncodeToString(randomBytes(length))

	fmt.Println("\n# Add to mqbridge.toml:")
	fmt.Println(`[status.auth]`)
	fmt.Println(`type = "bearer"`)
	fmt.Println()
	fmt.Println(`[status.auth.bearer_auth]`)
	fmt.Printf("jwt_signing_key = %q\n", key)
	fmt.Println()
	fmt.Println("# Sign client tokens with HS256 using this key; an exp claim is required")
}

func randomBytes(length int) []byte {
	if length < 16 {
		fmt.Fprintf(os.Stderr, "Warning: length < 16 bytes is insecure\n")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		fatalf("Failed to read random bytes: %v", err)
	}
	return buf
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatalf("Failed to read password: %v", err)
	}
	return string(password)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
