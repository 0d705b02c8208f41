package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xdao.co/graphwire/keys"
	"xdao.co/graphwire/keyservice"
)

func (a *app) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(a.keysDir)
}

func (a *app) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Local key management",
	}
	cmd.AddCommand(a.keyInitCmd(), a.keyDeriveCmd(), a.keyEncryptionCmd(), a.keyExportCmd(), a.keyListCmd(), a.keyPublishCmd())
	return cmd
}

func checkName(flag, name string) error {
	if name == "" {
		return usagef("missing --%s", flag)
	}
	if err := keys.CheckKeyName(name); err != nil {
		return usagef("invalid --%s: %v", flag, err)
	}
	return nil
}

func (a *app) keyInitCmd() *cobra.Command {
	var name, seedHex string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a root signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkName("name", name); err != nil {
				return err
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			var seed []byte
			if seedHex != "" {
				if seed, err = keys.ParseSeedHex(seedHex); err != nil {
					return usagef("invalid --seed-hex: %v", err)
				}
			} else {
				seed = make([]byte, ed25519.SeedSize)
				if _, err := rand.Read(seed); err != nil {
					return fmt.Errorf("rand: %w", err)
				}
			}
			m, err := ks.Init(name, seed, force)
			if err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			fmt.Fprintf(a.out, "Created root key: %s\nStored at: %s\n", m.PublicKey, ks.Path(name))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Identity name")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars (for reproducible setups)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}

func (a *app) keyDeriveCmd() *cobra.Command {
	var from, role, alg string
	var force bool
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a role signing key from a root key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkName("from", from); err != nil {
				return err
			}
			if role == "" {
				return usagef("missing --role")
			}
			if err := keys.CheckRole(role); err != nil {
				return usagef("invalid --role: %v", err)
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			switch alg {
			case keys.AlgEd25519, keys.AlgDilithium3:
			default:
				return usagef("invalid --alg %q (want %s or %s)", alg, keys.AlgEd25519, keys.AlgDilithium3)
			}
			r, err := ks.AddRole(from, role, alg, force)
			if err != nil {
				return fmt.Errorf("derive role key: %w", err)
			}
			fmt.Fprintf(a.out, "Created %s role key: %s\n", r.Algorithm, r.PublicKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Root identity name")
	cmd.Flags().StringVar(&role, "role", "", "Role name")
	cmd.Flags().StringVar(&alg, "alg", keys.AlgEd25519, "Signing algorithm: ed25519 or dilithium3")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing role")
	return cmd
}

func (a *app) keyEncryptionCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "encryption",
		Short: "Derive the x25519 key used to receive encrypted references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkName("name", name); err != nil {
				return err
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			ek, err := ks.AddEncryption(name)
			if err != nil {
				return fmt.Errorf("derive encryption key: %w", err)
			}
			fmt.Fprintln(a.out, ek.PublicKeyString())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Identity name")
	return cmd
}

func (a *app) keyExportCmd() *cobra.Command {
	var name, role string
	var encryption bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := a.exportKey(name, role, encryption)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, pub)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Identity name")
	cmd.Flags().StringVar(&role, "role", "", "Export a derived role key")
	cmd.Flags().BoolVar(&encryption, "encryption", false, "Export the encryption key")
	return cmd
}

func (a *app) exportKey(name, role string, encryption bool) (string, error) {
	if err := checkName("name", name); err != nil {
		return "", err
	}
	if role != "" && encryption {
		return "", usagef("--role and --encryption are exclusive")
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			return "", usagef("invalid --role: %v", err)
		}
	}
	id, err := a.identity(name)
	if err != nil {
		return "", fmt.Errorf("export key: %w", err)
	}
	if encryption {
		ek, err := id.EncryptionKey()
		if err != nil {
			return "", fmt.Errorf("export key: %w", err)
		}
		return ek.PublicKeyString(), nil
	}
	s, err := id.Signer(role)
	if err != nil {
		return "", fmt.Errorf("export key: %w", err)
	}
	return s.PublicKey(), nil
}

func (a *app) identity(name string) (*keys.Identity, error) {
	ks, err := a.keyStore()
	if err != nil {
		return nil, err
	}
	return ks.Open(name)
}

func (a *app) keyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			entries, err := ks.List()
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			for _, m := range entries {
				fmt.Fprintln(a.out, m.Identity)
				for _, r := range m.RoleNames() {
					fmt.Fprintf(a.out, "  - %s (%s)\n", r, m.Roles[r].Algorithm)
				}
				if m.Encryption != "" {
					fmt.Fprintln(a.out, "  - (encryption)")
				}
			}
			return nil
		},
	}
}

func (a *app) keyPublishCmd() *cobra.Command {
	var name, role, id, user string
	var encryption bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a public key to the key service",
		Long: `Uploads the key under --id. The password is read from
GRAPHWIRE_KEYSERVICE_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return usagef("missing --id")
			}
			if a.cfg.KeyService.Address == "" {
				return usagef("keyservice.address is not configured")
			}
			pub, err := a.exportKey(name, role, encryption)
			if err != nil {
				return err
			}
			client, err := keyservice.Dial(a.cfg.KeyService.Address, a.cfg.KeyService.Timeout)
			if err != nil {
				return err
			}
			defer client.Close()
			creds := keyservice.Credentials{User: user, Password: os.Getenv("GRAPHWIRE_KEYSERVICE_PASSWORD")}
			if err := client.Upload(cmd.Context(), pub, id, creds); err != nil {
				return fmt.Errorf("publish %s: %w", id, err)
			}
			fmt.Fprintf(a.out, "Published %s as %s\n", pub, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Identity name")
	cmd.Flags().StringVar(&role, "role", "", "Publish a derived role key")
	cmd.Flags().BoolVar(&encryption, "encryption", false, "Publish the encryption key")
	cmd.Flags().StringVar(&id, "id", "", "Identifier to publish under (an IRI)")
	cmd.Flags().StringVar(&user, "user", "", "Key service user")
	return cmd
}
