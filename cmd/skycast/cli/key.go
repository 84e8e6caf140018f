package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skycastd/skycast/internal/auth"
	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Issue, list, regenerate, and revoke the API keys display devices authenticate with.",
	}

	cmd.AddCommand(newKeyIssueCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRegenerateCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// newKeyService wires an auth.Keys over the store for one CLI invocation.
// The pending cache it creates dies with the process; from the CLI the
// secret is printed directly instead.
func newKeyService(st *store.Store) *auth.Keys {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return auth.NewKeys(st, auth.NewPendingSecretCache(), logger)
}

// ---------- key issue ----------

func newKeyIssueCmd() *cobra.Command {
	var (
		username string
		name     string
		expires  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new API key for a user",
		Long:  "Generate a new API key bound to a user. The secret is shown once and cannot be retrieved again.",
		Example: `  skycast key issue --username alice --name "living room display"
  skycast key issue --username bob --expires 8760h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyIssue(username, name, expires)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Owner of the key (required)")
	cmd.Flags().StringVar(&name, "name", "Unnamed Key", "Human-readable key name")
	cmd.Flags().DurationVar(&expires, "expires", 0, "Expiry as a duration from now (0 = never)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runKeyIssue(username, name string, expires time.Duration) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	user, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q not found", username)
	}

	var expiresAt *time.Time
	if expires > 0 {
		t := time.Now().UTC().Add(expires)
		expiresAt = &t
	}

	keyID, secret, err := newKeyService(st).Issue(ctx, user.ID, name, expiresAt)
	if err != nil {
		return fmt.Errorf("issue api key: %w", err)
	}

	fmt.Println("API key issued:")
	fmt.Println()
	fmt.Printf("  Key ID:  %s\n", keyID)
	fmt.Printf("  Secret:  %s\n", secret)
	fmt.Printf("  Owner:   %s\n", username)
	if expiresAt != nil {
		fmt.Printf("  Expires: %s\n", expiresAt.Format(time.RFC3339))
	}
	fmt.Println()
	fmt.Println("  Save the secret now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		username   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(username, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Only show keys owned by this user")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(username string, jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	var keys []model.APIKey
	if username != "" {
		user, err := st.GetUserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("user %q not found", username)
		}
		keys, err = st.ListAPIKeysByOwner(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("list api keys: %w", err)
		}
	} else {
		keys, err = st.ListAPIKeys(ctx)
		if err != nil {
			return fmt.Errorf("list api keys: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys. Use 'skycast key issue' to create one.")
		return nil
	}

	fmt.Printf("%-28s %-8s %-24s %-8s %-20s\n", "KEY ID", "OWNER", "NAME", "VIEWED", "LAST USED")
	fmt.Printf("%-28s %-8s %-24s %-8s %-20s\n", "------", "-----", "----", "------", "---------")
	for _, k := range keys {
		viewed := "no"
		if k.SecretViewed {
			viewed = "yes"
		}
		lastUsed := "never"
		if k.LastUsed != nil {
			lastUsed = k.LastUsed.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-28s %-8d %-24s %-8s %-20s\n", k.KeyID, k.OwnerID, k.Name, viewed, lastUsed)
	}

	return nil
}

// ---------- key regenerate ----------

func newKeyRegenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regenerate <key_id>",
		Short: "Replace an API key's secret",
		Long:  "Generate a new secret for an existing key. The old secret stops verifying immediately.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRegenerate(args[0])
		},
	}

	return cmd
}

func runKeyRegenerate(keyID string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	secret, err := newKeyService(st).Regenerate(context.Background(), keyID)
	if err != nil {
		return fmt.Errorf("regenerate api key: %w", err)
	}

	fmt.Printf("New secret for %s:\n", keyID)
	fmt.Println()
	fmt.Printf("  %s\n", secret)
	fmt.Println()
	fmt.Println("  Save the secret now - it cannot be retrieved again.")
	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <key_id>",
		Short: "Revoke an API key",
		Long:  "Delete an API key, preventing any further authenticated requests using it. key_ids are never reused.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(keyID string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := newKeyService(st).Revoke(context.Background(), keyID); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked API key %s\n", keyID)
	return nil
}
