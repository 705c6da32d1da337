// ABOUTME: Operator CLI for coven-sso token and ticket operations
// ABOUTME: Talks to the HTTP API; colorized output for terminals

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

const banner = `

  ___ _____   _____ _ __        ___ ___  ___
 / __/ _ \ \ / / _ \ '_ \ _____/ __/ __|/ _ \
| (_| (_) \ V /  __/ | | |_____\__ \__ \ (_) |
 \___\___/ \_/ \___|_| |_|     |___/___/\___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("COVEN_SSO_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = cmdLogin(baseURL, args)
	case "token":
		err = cmdToken(baseURL, args)
	case "validate":
		err = cmdValidate(baseURL, args)
	case "logout":
		err = cmdLogout(baseURL, args)
	case "health":
		err = cmdHealth(baseURL)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: sso-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login <user> <pass> [service]      Authenticate and obtain a TGT")
	fmt.Println("  token <grant> <client-id> [args]   Request an OAuth2 token")
	fmt.Println("    password <user> <pass>           Resource-owner password grant")
	fmt.Println("    client_credentials <secret>      Client-credentials grant")
	fmt.Println("    refresh_token <token>            Refresh-token grant")
	fmt.Println("  validate <ticket> <service>        Validate a service ticket")
	fmt.Println("  logout <tgt>                       Destroy an SSO session")
	fmt.Println("  health                             Check server health")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  COVEN_SSO_URL   Server base URL (default: http://localhost:8080)")
}

// postForm posts a form and decodes the JSON response into a map.
func postForm(rawURL string, form url.Values) (map[string]any, error) {
	resp, err := http.PostForm(rawURL, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		desc, _ := result["error_description"].(string)
		code, _ := result["error"].(string)
		return nil, fmt.Errorf("%s (%s)", desc, code)
	}
	return result, nil
}

func printResult(result map[string]any) {
	green := color.New(color.FgGreen)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for key, value := range result {
		data, _ := json.Marshal(value)
		fmt.Fprintf(w, "%s\t%s\n", green.Sprint(key), string(data))
	}
	w.Flush()
}

func cmdLogin(baseURL string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: login <user> <pass> [service]")
	}
	form := url.Values{"username": {args[0]}, "password": {args[1]}}
	if len(args) > 2 {
		form.Set("service", args[2])
	}
	result, err := postForm(baseURL+"/v1/login", form)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func cmdToken(baseURL string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: token <grant> <client-id> [args]")
	}
	grant, clientID := args[0], args[1]
	form := url.Values{"grant_type": {grant}, "client_id": {clientID}}

	switch grant {
	case "password":
		if len(args) < 4 {
			return fmt.Errorf("usage: token password <client-id> <user> <pass>")
		}
		form.Set("username", args[2])
		form.Set("password", args[3])
	case "client_credentials":
		if len(args) < 3 {
			return fmt.Errorf("usage: token client_credentials <client-id> <secret>")
		}
		form.Set("client_secret", args[2])
	case "refresh_token":
		if len(args) < 3 {
			return fmt.Errorf("usage: token refresh_token <client-id> <token>")
		}
		form.Set("refresh_token", args[2])
	case "authorization_code":
		if len(args) < 3 {
			return fmt.Errorf("usage: token authorization_code <client-id> <code>")
		}
		form.Set("code", args[2])
	default:
		return fmt.Errorf("unknown grant type %q", grant)
	}

	result, err := postForm(baseURL+"/oauth2/token", form)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func cmdValidate(baseURL string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: validate <ticket> <service>")
	}
	result, err := postForm(baseURL+"/v1/validate",
		url.Values{"ticket": {args[0]}, "service": {args[1]}})
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func cmdLogout(baseURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: logout <tgt>")
	}
	req, err := http.NewRequest(http.MethodDelete,
		baseURL+"/v1/sessions/"+url.PathEscape(args[0]), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("logout failed: %s", strings.TrimSpace(string(body)))
	}
	color.Green("Session destroyed")
	return nil
}

func cmdHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: HTTP %d", resp.StatusCode)
	}
	color.Green("OK")
	return nil
}
