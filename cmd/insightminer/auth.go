package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"insightminer/pkg/auth"
	"insightminer/pkg/session"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram credentials",
	Long: `Manage stored Instagram credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (backward compatibility)

Never share your credentials or config files!`,
}

// loginCmd stores credentials for an account
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Instagram credentials securely",
	Long: `Store Instagram credentials securely in the system keychain or an
encrypted file. The password is read without echoing.`,
	Example: `  # Interactive login
  insightminer auth login

  # Login with username
  insightminer auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd removes stored credentials
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials and the persisted session",
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogout,
}

// statusCmd shows stored accounts and session state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored accounts and session state",
	Run:   runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("failed to initialize credential manager", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fatal("failed to read username", err)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		fatal("username is required", nil)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("Account '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Password: ")
	password, err := readPassword()
	if err != nil {
		fatal("failed to read password", err)
	}
	if password == "" {
		fatal("password is required", nil)
	}

	fmt.Print("User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	account := &auth.Account{
		Username:     username,
		Password:     password,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}

	if err := manager.Store(account); err != nil {
		fatal("failed to store credentials", err)
	}

	fmt.Printf("Credentials stored for %s\n", username)
	fmt.Println("A session will be established on the first download.")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("failed to initialize credential manager", err)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			fmt.Println("No stored accounts")
			return
		}
		if len(accounts) > 1 {
			fatal("multiple accounts stored; specify the username to remove", nil)
		}
		username = accounts[0].Username
	}

	if err := manager.Delete(username); err != nil {
		fatal("failed to remove account", err)
	}

	// Drop the persisted session too so the next run starts clean
	cfg, err := loadConfig()
	if err == nil {
		session.NewStore(cfg.Instagram.SessionFile).Delete()
	}

	fmt.Printf("Account removed: %s\n", username)
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("failed to initialize credential manager", err)
	}

	accounts, err := manager.List()
	if err != nil {
		fatal("failed to list accounts", err)
	}

	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Use 'insightminer auth login' to add one.")
	} else {
		fmt.Println("Stored accounts:")
		for _, account := range accounts {
			sanitized := auth.SanitizeAccount(account)
			fmt.Printf("  %s (password: %s, modified: %s)\n",
				sanitized.Username, sanitized.Password,
				sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return
	}

	bundle, err := session.NewStore(cfg.Instagram.SessionFile).Load()
	if err != nil || bundle == nil || !bundle.Valid() {
		fmt.Println("Session: none")
		return
	}
	fmt.Printf("Session: %s (last verified %s)\n",
		bundle.Username, bundle.LastVerified.Format("2006-01-02 15:04:05"))
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
