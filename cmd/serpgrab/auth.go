package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"serpgrab/pkg/auth"
	"serpgrab/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram credentials",
	Long: `Manage stored Instagram credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Use a secondary account for scraping. Never share your credentials or
config files.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Instagram credentials securely",
	Long: `Store an Instagram username and password in the system keychain or an
encrypted file. The password prompt hides input as you type.`,
	Example: `  # Interactive login
  serpgrab auth login

  # Login with username
  serpgrab auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	Run:   runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Instagram accounts with passwords masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if username == "" {
		fmt.Print("Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
	}

	if username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("Account %q already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Password (hidden): ")
	password, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	if password == "" {
		ui.PrintError("Password is required")
		os.Exit(1)
	}

	if err := manager.Store(&auth.Account{Username: username, Password: password}); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials stored for %s", username))
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	username := args[0]
	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials removed for %s", username))
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Run 'serpgrab auth login' to add one.")
		return
	}

	for _, account := range accounts {
		clean := auth.SanitizeAccount(account)
		ui.PrintInfo(clean.Username, fmt.Sprintf("password %s, updated %s",
			clean.Password, clean.LastModified.Format("2006-01-02 15:04")))
	}
}

// readPassword reads a line from stdin without echoing it
func readPassword() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
