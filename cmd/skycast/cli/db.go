package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skycastd/skycast/internal/auth"
	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"database"},
		Short:   "Manage the local database",
		Long:    "Initialize and seed the SQLite database backing the server.",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBSeedCmd())

	return cmd
}

// ---------- db init ----------

func newDBInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply migrations",
		Long:  "Create the SQLite database in the data directory and bring its schema up to date. Safe to run repeatedly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit()
		},
	}

	return cmd
}

func runDBInit() error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Ping(context.Background()); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	fmt.Printf("Database ready at %s\n", resolveDataDir())
	return nil
}

// ---------- db seed ----------

// seedFile is the YAML document accepted by 'db seed'.
type seedFile struct {
	Users []struct {
		Username string     `yaml:"username"`
		Password string     `yaml:"password"`
		Role     model.Role `yaml:"role"`
	} `yaml:"users"`
	Devices []struct {
		Owner    string  `yaml:"owner"`
		Name     string  `yaml:"name"`
		Address  string  `yaml:"address"`
		Lat      float64 `yaml:"lat"`
		Lon      float64 `yaml:"lon"`
		Timezone string  `yaml:"timezone"`
	} `yaml:"devices"`
}

func newDBSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load users and devices from a YAML file",
		Long: `Create users and devices described in a YAML seed file. Existing
usernames are skipped, so re-running a seed file is harmless.`,
		Example: `  skycast db seed testdata/dev-seed.yaml

  # seed file format:
  #   users:
  #     - username: alice
  #       password: hunter22
  #       role: admin
  #   devices:
  #     - owner: alice
  #       name: Kitchen Display
  #       address: 1600 Pennsylvania Ave
  #       lat: 38.8977
  #       lon: -77.0365
  #       timezone: America/New_York`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeed(args[0])
		},
	}

	return cmd
}

func runDBSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	created := 0
	for _, u := range seed.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("seed user missing username or password")
		}
		role := u.Role
		if role == "" {
			role = model.RoleUser
		}
		if !role.Valid() {
			return fmt.Errorf("seed user %q: unknown role %q", u.Username, role)
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", u.Username, err)
		}

		user := &model.User{Username: u.Username, PasswordHash: hash, Role: role}
		if err := st.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				fmt.Printf("Skipping user %q (already exists)\n", u.Username)
				continue
			}
			return fmt.Errorf("create user %q: %w", u.Username, err)
		}
		created++
	}

	for _, d := range seed.Devices {
		owner, err := st.GetUserByUsername(ctx, d.Owner)
		if err != nil {
			return fmt.Errorf("seed device %q: owner %q not found", d.Name, d.Owner)
		}

		dev := &model.Device{
			DeviceID: newDeviceID(),
			OwnerID:  owner.ID,
			Name:     d.Name,
			Address:  d.Address,
			Lat:      d.Lat,
			Lon:      d.Lon,
			Timezone: d.Timezone,
		}
		if err := st.CreateDevice(ctx, dev); err != nil {
			return fmt.Errorf("create device %q: %w", d.Name, err)
		}
		created++
	}

	fmt.Printf("Seeded %d records from %s\n", created, path)
	return nil
}
