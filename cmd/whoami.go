package cmd

import (
	"fmt"

	"celestial/arcade/internal/auth"
	"celestial/arcade/internal/config"

	"github.com/spf13/cobra"
)

// whoamiCmd represents the whoami command for displaying current authentication state.
// It shows the currently authenticated account information by validating the current
// session with the portal.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show current authenticated account",
	Long: `The whoami command displays information about the currently authenticated account.
It validates the current session by checking with the portal and shows the account
identifier if authentication is valid.

If no valid session exists, it will indicate that the player is not logged in.
When the portal is unreachable it falls back to the locally cached account.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := auth.Load()
		if err != nil {
			// If auth state can't be loaded, treat as not logged in
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'arcade login' to get started.")
			return nil
		}

		// Check if not logged in
		if !st.LoggedIn {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'arcade login' to get started.")
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		svc := auth.NewService(cfg.PortalURL)

		// Try to get full user data with email
		userData, err := svc.GetUserData(ctx)
		if err == nil && userData != nil {
			// Try to extract email
			if email, ok := userData["email"].(string); ok && email != "" {
				fmt.Println(whoAmIPhrase(email))
				return nil
			}
			// Fallback to user_id
			if userID, ok := userData["user_id"].(string); ok && userID != "" {
				fmt.Println(whoAmIPhrase(userID))
				return nil
			}
			// Fallback to id
			if id, ok := userData["id"].(string); ok && id != "" {
				fmt.Println(whoAmIPhrase(id))
				return nil
			}
		}

		// Fallback: Try WhoAmI
		if account, ok, err := svc.WhoAmI(ctx); err == nil && ok {
			fmt.Println(whoAmIPhrase(account))
			return nil
		}

		// Final fallback to local state
		if st.LoggedIn && st.Account != "" {
			fmt.Println(whoAmIPhrase(st.Account))
			return nil
		}

		fmt.Println("🔒 You're not logged in yet!")
		fmt.Println("   Run 'arcade login' to get started.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// whoAmIPhrase returns a friendly phrase with the player's identifier
func whoAmIPhrase(identifier string) string {
	return fmt.Sprintf("👤 Current user: %s", identifier)
}
